// Package testutil provides shared test fixtures: a mock Twitch API server
// and a gated Postgres helper.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTwitchServer mocks the Twitch id and Helix API surfaces.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a mock Twitch API server. Register handlers by
// path; unregistered paths return 404.
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUserinfoResponse adds a handler for the /oauth2/userinfo endpoint.
func (m *MockTwitchServer) MockUserinfoResponse(sub, preferredUsername string) {
	m.Handlers["/oauth2/userinfo"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":                sub,
			"preferred_username": preferredUsername,
		})
	}
}

// MockRewardsResponse adds a handler serving the custom rewards list.
func (m *MockTwitchServer) MockRewardsResponse(rewards []map[string]any) {
	m.Handlers["/channel_points/custom_rewards"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": rewards})
	}
}

// MockRedemptionSink adds a handler for redemption resolution and returns a
// function reporting the statuses it received, in order.
func (m *MockTwitchServer) MockRedemptionSink() func() []string {
	var mu sync.Mutex
	var statuses []string
	m.Handlers["/channel_points/custom_rewards/redemptions"] = func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &payload)
		mu.Lock()
		statuses = append(statuses, payload.Status)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(statuses))
		copy(out, statuses)
		return out
	}
}

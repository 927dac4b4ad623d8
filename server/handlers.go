// Package server exposes the HTTP API handlers.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/chat"
	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
	"github.com/Voxel-Fox-Ltd/twitch-tts/rewards"
)

const maxOAuthStates = 10000

// StatusSource is the live session view the status endpoint reads from. Nil
// is allowed: the service can run HTTP-only while disconnected.
type StatusSource interface {
	State() chat.State
	QueueDepth() int
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db        *sql.DB
	sess      StatusSource
	scheduler *playback.Scheduler
	board     *rewards.Board

	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a Handlers instance. sess, scheduler, and board may be
// nil; the matching endpoints then degrade rather than fail.
func NewHandlers(dbx *sql.DB, sess StatusSource, scheduler *playback.Scheduler, board *rewards.Board) *Handlers {
	return &Handlers{
		db:         dbx,
		sess:       sess,
		scheduler:  scheduler,
		board:      board,
		stateStore: make(map[string]time.Time),
	}
}

// addOAuthState records a pending OAuth state, evicting expired entries so
// the store cannot grow without bound.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	now := time.Now()
	for st, exp := range h.stateStore {
		if now.After(exp) {
			delete(h.stateStore, st)
		}
	}
	if len(h.stateStore) >= maxOAuthStates {
		return
	}
	h.stateStore[state] = expiry
}

func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}

// HandleHealthz responds to liveness probes by checking database
// connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probes: the database must answer and a
// Twitch token must be on file.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"credentials", func() error {
			var count int
			err := h.db.QueryRowContext(r.Context(),
				"SELECT COUNT(*) FROM oauth_tokens WHERE provider='twitch'").Scan(&count)
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("missing twitch OAuth token")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight status summary: transport state, queue
// depth, and utterance counts.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	if h.sess != nil {
		resp["transport_state"] = h.sess.State().String()
		resp["queue_depth"] = h.sess.QueueDepth()
	} else {
		resp["transport_state"] = chat.StateDisconnected.String()
	}

	if spoken24h, err := db.CountUtterances(ctx, h.db, time.Now().Add(-24*time.Hour)); err == nil {
		resp["spoken_24h"] = spoken24h
	}

	if h.board != nil {
		sounds := h.board.Sounds()
		enabled := 0
		for _, s := range sounds {
			if s.Enabled {
				enabled++
			}
		}
		resp["sounds_configured"] = len(sounds)
		resp["sounds_enabled"] = enabled
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Voxel-Fox-Ltd/twitch-tts/testutil"
)

func TestListCustomRewards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channel_points/custom_rewards" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("broadcaster_id"); got != "123" {
			t.Errorf("broadcaster_id = %q", got)
		}
		if got := r.Header.Get("Client-Id"); got != "cid" {
			t.Errorf("Client-Id = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"rw-1","title":"airhorn","cost":500,"is_enabled":true}]}`))
	}))
	defer srv.Close()

	hc := &HelixClient{ClientID: "cid", Token: "tok", BaseURL: srv.URL}
	rewards, err := hc.ListCustomRewards(context.Background(), "123")
	if err != nil {
		t.Fatal(err)
	}
	if len(rewards) != 1 || rewards[0].ID != "rw-1" || !rewards[0].IsEnabled {
		t.Errorf("rewards = %+v", rewards)
	}
}

func TestListCustomRewardsRequiresBroadcaster(t *testing.T) {
	hc := &HelixClient{}
	if _, err := hc.ListCustomRewards(context.Background(), ""); err == nil {
		t.Error("expected error for empty broadcaster id")
	}
}

func TestCreateCustomReward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"rw-new","title":"airhorn","cost":500,"is_enabled":true}]}`))
	}))
	defer srv.Close()

	hc := &HelixClient{ClientID: "cid", Token: "tok", BaseURL: srv.URL}
	created, err := hc.CreateCustomReward(context.Background(), "123", CustomReward{Title: "airhorn", Cost: 500, IsEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "rw-new" {
		t.Errorf("created id = %q", created.ID)
	}
}

func TestResolveRedemptionQuery(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	hc := &HelixClient{ClientID: "cid", Token: "tok", BaseURL: srv.URL}
	if err := hc.ResolveRedemption(context.Background(), "123", "rw-1", "red-1", RedemptionFulfilled); err != nil {
		t.Fatal(err)
	}
	if gotQuery.Get("broadcaster_id") != "123" || gotQuery.Get("reward_id") != "rw-1" || gotQuery.Get("id") != "red-1" {
		t.Errorf("query = %v", gotQuery)
	}
}

func TestHelixErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	hc := &HelixClient{BaseURL: srv.URL}
	err := hc.SetRewardEnabled(context.Background(), "123", "rw-1", false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("err = %v", err)
	}
}

func TestUserinfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/userinfo" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"123","preferred_username":"Alice"}`))
	}))
	defer srv.Close()

	ic := &IdentityClient{BaseURL: srv.URL}
	id, err := ic.Userinfo(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if id.Subject != "123" || id.PreferredUsername != "Alice" {
		t.Errorf("identity = %+v", id)
	}
}

func TestUserinfoMissingUsernameClaim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"123"}`))
	}))
	defer srv.Close()

	ic := &IdentityClient{BaseURL: srv.URL}
	if _, err := ic.Userinfo(context.Background(), "tok"); err == nil {
		t.Error("expected error for missing preferred_username")
	}
}

func TestUserinfoEmptyToken(t *testing.T) {
	ic := &IdentityClient{}
	if _, err := ic.Userinfo(context.Background(), ""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestClientsAgainstMockTwitchServer(t *testing.T) {
	srv := testutil.NewMockTwitchServer(t)
	srv.MockUserinfoResponse("456", "bob")
	srv.MockRewardsResponse([]map[string]any{
		{"id": "rw-9", "title": "drum", "cost": 250, "is_enabled": false},
	})

	ic := &IdentityClient{BaseURL: srv.URL}
	id, err := ic.Userinfo(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if id.Subject != "456" || id.PreferredUsername != "bob" {
		t.Errorf("identity = %+v", id)
	}

	hc := &HelixClient{ClientID: "cid", Token: "tok", BaseURL: srv.URL}
	rewards, err := hc.ListCustomRewards(context.Background(), "456")
	if err != nil {
		t.Fatal(err)
	}
	if len(rewards) != 1 || rewards[0].ID != "rw-9" || rewards[0].Cost != 250 || rewards[0].IsEnabled {
		t.Errorf("rewards = %+v", rewards)
	}
}

func TestBuildAuthorizeURL(t *testing.T) {
	raw, err := BuildAuthorizeURL("cid", "http://localhost:8080/auth/twitch/callback", "", "code", "st-1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("scope") != DefaultScopes {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("state") != "st-1" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if !strings.Contains(q.Get("claims"), "preferred_username") {
		t.Errorf("claims = %q", q.Get("claims"))
	}
}

func TestBuildAuthorizeURLDefaults(t *testing.T) {
	raw, err := BuildAuthorizeURL("cid", "http://localhost/cb", "chat:read,chat:edit", "", "")
	if err != nil {
		t.Fatal(err)
	}
	q, _ := url.Parse(raw)
	if got := q.Query().Get("response_type"); got != "token" {
		t.Errorf("response_type = %q", got)
	}
	if got := q.Query().Get("scope"); got != "chat:read chat:edit" {
		t.Errorf("scope = %q, commas should become spaces", got)
	}
}

func TestBuildAuthorizeURLRequiresClientID(t *testing.T) {
	if _, err := BuildAuthorizeURL("", "http://localhost/cb", "", "", ""); err == nil {
		t.Error("expected error for missing client id")
	}
}

// Package twitchapi contains minimal helpers for the Twitch identity and
// Helix APIs: token-holder identity lookup, custom channel-point reward
// management, and redemption resolution. All calls use the broadcaster's
// user access token.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const defaultHelixURL = "https://api.twitch.tv/helix"

// HelixClient provides the custom-rewards surface used by the redemption bridge.
type HelixClient struct {
	ClientID   string
	Token      string
	HTTPClient *http.Client
	BaseURL    string
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultHelixURL
}

// CustomReward is one channel-point reward definition.
type CustomReward struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Cost            int    `json:"cost"`
	IsEnabled       bool   `json:"is_enabled"`
	BackgroundColor string `json:"background_color,omitempty"`
}

// Redemption statuses accepted by ResolveRedemption.
const (
	RedemptionFulfilled = "FULFILLED"
	RedemptionCanceled  = "CANCELED"
)

func (hc *HelixClient) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	u := hc.base() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+hc.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return hc.http().Do(req)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", slog.Any("err", err))
	}
}

func errorFromResponse(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("%s failed: %s: %s", op, resp.Status, string(b))
}

// ListCustomRewards lists the broadcaster's custom rewards.
func (hc *HelixClient) ListCustomRewards(ctx context.Context, broadcasterID string) ([]CustomReward, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	resp, err := hc.do(ctx, http.MethodGet, "/channel_points/custom_rewards", q, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse("list rewards", resp)
	}
	var body struct {
		Data []CustomReward `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// CreateCustomReward creates a reward and returns the stored definition
// (including its assigned id).
func (hc *HelixClient) CreateCustomReward(ctx context.Context, broadcasterID string, reward CustomReward) (*CustomReward, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	resp, err := hc.do(ctx, http.MethodPost, "/channel_points/custom_rewards", q, map[string]any{
		"title":            reward.Title,
		"cost":             reward.Cost,
		"is_enabled":       reward.IsEnabled,
		"background_color": reward.BackgroundColor,
	})
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse("create reward", resp)
	}
	var body struct {
		Data []CustomReward `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("create reward: empty response")
	}
	return &body.Data[0], nil
}

// SetRewardEnabled patches a reward's enabled state.
func (hc *HelixClient) SetRewardEnabled(ctx context.Context, broadcasterID, rewardID string, enabled bool) error {
	if broadcasterID == "" || rewardID == "" {
		return fmt.Errorf("broadcasterID/rewardID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("id", rewardID)
	resp, err := hc.do(ctx, http.MethodPatch, "/channel_points/custom_rewards", q, map[string]any{
		"is_enabled": enabled,
	})
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse("patch reward", resp)
	}
	return nil
}

// ResolveRedemption marks a redemption FULFILLED or CANCELED so the remote
// service reflects the local outcome.
func (hc *HelixClient) ResolveRedemption(ctx context.Context, broadcasterID, rewardID, redemptionID, status string) error {
	if broadcasterID == "" || rewardID == "" || redemptionID == "" {
		return fmt.Errorf("broadcasterID/rewardID/redemptionID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("reward_id", rewardID)
	q.Set("id", redemptionID)
	resp, err := hc.do(ctx, http.MethodPatch, "/channel_points/custom_rewards/redemptions", q, map[string]any{
		"status": status,
	})
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse("resolve redemption", resp)
	}
	return nil
}

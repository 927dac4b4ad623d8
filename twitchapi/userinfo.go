package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultIdentityURL = "https://id.twitch.tv"

// Identity is the OIDC userinfo payload for an access token.
type Identity struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
}

// IdentityClient resolves an access token to the identity that issued it.
type IdentityClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

func (ic *IdentityClient) http() *http.Client {
	if ic.HTTPClient != nil {
		return ic.HTTPClient
	}
	return http.DefaultClient
}

func (ic *IdentityClient) base() string {
	if ic.BaseURL != "" {
		return ic.BaseURL
	}
	return defaultIdentityURL
}

// Userinfo fetches the token holder's identity. The preferred_username claim
// must have been requested at authorization time.
func (ic *IdentityClient) Userinfo(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("token empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ic.base()+"/oauth2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ic.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse("userinfo", resp)
	}
	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, err
	}
	if id.PreferredUsername == "" {
		return nil, fmt.Errorf("userinfo: missing preferred_username claim")
	}
	return &id, nil
}

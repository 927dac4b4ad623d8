package twitchapi

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// DefaultScopes are the scopes the service needs: identity claims, chat
// reading, and redemption management.
const DefaultScopes = "openid chat:read channel:manage:redemptions"

// BuildAuthorizeURL constructs the user authorization URL. responseType is
// "token" for the implicit grant used by the control page, or "code" for the
// server-side grant. The preferred_username claim is always requested so the
// transport can resolve its login at connect time.
func BuildAuthorizeURL(clientID, redirectURI, scopes, responseType, state string) (string, error) {
	if clientID == "" || redirectURI == "" {
		return "", errors.New("missing clientID or redirectURI")
	}
	if responseType == "" {
		responseType = "token"
	}
	if scopes == "" {
		scopes = DefaultScopes
	}
	claims, err := json.Marshal(map[string]any{
		"userinfo": map[string]any{"preferred_username": nil},
	})
	if err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("response_type", responseType)
	v.Set("client_id", clientID)
	v.Set("redirect_uri", redirectURI)
	v.Set("scope", strings.TrimSpace(strings.ReplaceAll(scopes, ",", " ")))
	v.Set("claims", string(claims))
	if state != "" {
		v.Set("state", state)
	}
	return defaultIdentityURL + "/oauth2/authorize?" + v.Encode(), nil
}

// Package oauth keeps the stored Twitch user token fresh. Tokens live in the
// oauth_tokens table (encrypted at rest when configured); a background
// refresher swaps them before they expire so the chat transport and Helix
// calls never present a stale credential.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
)

// RefreshFunc performs a provider-specific refresh and returns the new
// (access, refresh, expiry, scope) tuple.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// TwitchRefresher builds a RefreshFunc over the Twitch token endpoint using
// the app's client credentials.
func TwitchRefresher(clientID, clientSecret string) RefreshFunc {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     twitch.Endpoint,
	}
	return func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		tok, err := src.Token()
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		scope, _ := tok.Extra("scope").(string)
		return tok.AccessToken, tok.RefreshToken, tok.Expiry, scope, nil
	}
}

// StartRefresher launches a goroutine that wakes every interval, checks the
// provider's token row, and refreshes it once its remaining lifetime falls
// inside window. Wake-ups are jittered so multiple instances don't stampede
// the token endpoint.
func StartRefresher(ctx context.Context, dbx *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc, onRefresh func(access string)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		for {
			//nolint:gosec // G404: scheduling jitter, not security-sensitive
			jitter := time.Duration(rand.Int63n(int64(interval / 5)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval + jitter):
			}

			_, refresh, expiry, scope, err := db.GetOAuthToken(ctx, dbx, provider)
			if err != nil {
				slog.Warn("token lookup failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			if refresh == "" || time.Until(expiry) > window {
				continue
			}

			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			access, newRefresh, newExpiry, newScope, err := fn(rctx, refresh)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			if newRefresh == "" {
				newRefresh = refresh
			}
			if newScope == "" {
				newScope = scope
			}
			if err := db.UpsertOAuthToken(ctx, dbx, provider, access, newRefresh, newExpiry, newScope); err != nil {
				slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			slog.Info("token refreshed", slog.String("provider", provider))
			if onRefresh != nil {
				onRefresh(access)
			}
		}
	}()
}

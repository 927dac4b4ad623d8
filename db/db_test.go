package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/testutil"
)

func TestKVRoundTrip(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM kv WHERE key = 'cfg:TEST_KEY'`)
	})

	v, err := db.GetKV(ctx, dbx, "cfg:TEST_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("absent key = %q, want empty", v)
	}

	if err := db.SetKV(ctx, dbx, "cfg:TEST_KEY", "one"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetKV(ctx, dbx, "cfg:TEST_KEY", "two"); err != nil {
		t.Fatal(err)
	}
	v, err = db.GetKV(ctx, dbx, "cfg:TEST_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if v != "two" {
		t.Errorf("value = %q, want two (last write wins)", v)
	}
}

func TestVoiceOverridesCaseFolded(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM voice_overrides WHERE username IN ('overridetestuser', 'mutedtestuser')`)
	})

	if err := db.UpsertVoiceOverride(ctx, dbx, "OverrideTestUser", "Amy"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVoiceOverride(ctx, dbx, "MutedTestUser", ""); err != nil {
		t.Fatal(err)
	}

	ov, err := db.ListVoiceOverrides(ctx, dbx)
	if err != nil {
		t.Fatal(err)
	}
	if got := ov["overridetestuser"]; got != "Amy" {
		t.Errorf("override = %q, want Amy keyed by lowercase username", got)
	}
	muted, present := ov["mutedtestuser"]
	if !present || muted != "" {
		t.Errorf("muted row present=%v voice=%q, want present with empty voice", present, muted)
	}

	if err := db.DeleteVoiceOverride(ctx, dbx, "OVERRIDETESTUSER"); err != nil {
		t.Fatal(err)
	}
	ov, err = db.ListVoiceOverrides(ctx, dbx)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := ov["overridetestuser"]; present {
		t.Error("delete with different case left the row behind")
	}
}

func TestSoundRewards(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM sound_rewards WHERE name = 'testhorn'`)
	})

	s := db.SoundReward{Name: "testhorn", File: "testhorn.mp3", Enabled: true}
	if err := db.UpsertSoundReward(ctx, dbx, s); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSoundRewardID(ctx, dbx, "testhorn", "rw-db-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSoundEnabled(ctx, dbx, "testhorn", false); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListSoundRewards(ctx, dbx)
	if err != nil {
		t.Fatal(err)
	}
	var found *db.SoundReward
	for i := range all {
		if all[i].Name == "testhorn" {
			found = &all[i]
		}
	}
	if found == nil {
		t.Fatal("sound not listed")
	}
	if found.File != "testhorn.mp3" || found.RewardID != "rw-db-1" || found.Enabled {
		t.Errorf("sound = %+v", *found)
	}
}

func TestOAuthTokenRoundTrip(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM oauth_tokens WHERE provider = 'test-provider'`)
	})

	access, refresh, _, scope, err := db.GetOAuthToken(ctx, dbx, "test-provider")
	if err != nil {
		t.Fatal(err)
	}
	if access != "" || refresh != "" || scope != "" {
		t.Errorf("absent provider returned %q/%q/%q", access, refresh, scope)
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := db.UpsertOAuthToken(ctx, dbx, "test-provider", "acc-1", "ref-1", expiry, "chat:read"); err != nil {
		t.Fatal(err)
	}
	// Upsert again to exercise the conflict path.
	if err := db.UpsertOAuthToken(ctx, dbx, "test-provider", "acc-2", "ref-2", expiry, "chat:read openid"); err != nil {
		t.Fatal(err)
	}

	access, refresh, gotExpiry, scope, err := db.GetOAuthToken(ctx, dbx, "test-provider")
	if err != nil {
		t.Fatal(err)
	}
	if access != "acc-2" || refresh != "ref-2" {
		t.Errorf("tokens = %q/%q, want acc-2/ref-2", access, refresh)
	}
	if scope != "chat:read openid" {
		t.Errorf("scope = %q", scope)
	}
	if !gotExpiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", gotExpiry, expiry)
	}
}

func TestUtteranceLog(t *testing.T) {
	dbx := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM utterances WHERE channel = '#utterance-test'`)
	})

	before, err := db.CountUtterances(ctx, dbx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InsertUtterance(ctx, dbx, "#utterance-test", "alice", "1.5|hello", "hello", "Brian", 1.5); err != nil {
		t.Fatal(err)
	}
	after, err := db.CountUtterances(ctx, dbx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if after != before+1 {
		t.Errorf("count = %d, want %d", after, before+1)
	}
}

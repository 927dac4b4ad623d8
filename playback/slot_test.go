package playback

import (
	"testing"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
)

func TestAtempoFilter(t *testing.T) {
	cases := []struct {
		rate float64
		want string
	}{
		{1.5, "atempo=1.5000"},
		{2.0, "atempo=2.0000"},
		{4.0, "atempo=2.0,atempo=2.0000"},
		{10.0, "atempo=2.0,atempo=2.0,atempo=2.0,atempo=1.2500"},
		{0.5, "atempo=0.5000"},
		{0.25, "atempo=0.5,atempo=0.5000"},
	}
	for _, tc := range cases {
		if got := atempoFilter(tc.rate); got != tc.want {
			t.Errorf("atempoFilter(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestExecSlotIdleCallbackOnEmptySource(t *testing.T) {
	telemetry.Init()
	slot := &ExecSlot{Player: "true", Name: "test"}
	idle := make(chan struct{}, 1)
	slot.SetOnIdle(func() { idle <- struct{}{} })

	// No URL and no data: run short-circuits but must still release the slot.
	if err := slot.Play(Request{Audio: speech.Audio{}, Owner: "alice"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("idle callback never fired")
	}
	if slot.Busy() {
		t.Error("slot still busy after idle callback")
	}
	if slot.Owner() != "alice" {
		t.Errorf("owner = %q", slot.Owner())
	}
}

func TestExecSlotRunsPlayer(t *testing.T) {
	telemetry.Init()
	slot := &ExecSlot{Player: "true", Name: "test"}
	idle := make(chan struct{}, 1)
	slot.SetOnIdle(func() { idle <- struct{}{} })

	if err := slot.Play(Request{Audio: speech.Audio{URL: "https://example.test/a.mp3"}, Rate: 1.0, Owner: "bob"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("player never finished")
	}
	if slot.Busy() {
		t.Error("slot still busy after player exit")
	}
}

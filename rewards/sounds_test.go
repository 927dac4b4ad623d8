package rewards

import (
	"errors"
	"testing"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
)

func TestBoardPlayPicksFirstIdleSlot(t *testing.T) {
	busy := &stubSlot{busy: true}
	idle := &stubSlot{}
	board := NewBoard(nil, []playback.Slot{busy, idle})

	err := board.Play(db.SoundReward{Name: "AirHorn", File: "airhorn.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if busy.playCount() != 0 {
		t.Error("busy slot was assigned")
	}
	if idle.playCount() != 1 {
		t.Fatalf("idle slot plays = %d, want 1", idle.playCount())
	}
	req := idle.played[0]
	if req.Audio.URL != "airhorn.mp3" {
		t.Errorf("audio url = %q", req.Audio.URL)
	}
	if req.Owner != "sound:airhorn" {
		t.Errorf("owner = %q, want sound:airhorn", req.Owner)
	}
}

func TestBoardPlayAllBusy(t *testing.T) {
	board := NewBoard(nil, []playback.Slot{&stubSlot{busy: true}, &stubSlot{busy: true}})
	err := board.Play(db.SoundReward{Name: "drum", File: "drum.mp3"})
	if !errors.Is(err, ErrSlotsBusy) {
		t.Errorf("err = %v, want ErrSlotsBusy", err)
	}
}

func TestBoardByRewardID(t *testing.T) {
	board := NewBoard([]db.SoundReward{
		{Name: "unbound"},
		{Name: "drum", RewardID: "rw-2"},
	}, nil)

	if got := board.ByRewardID(""); got != nil {
		t.Errorf("empty reward id matched %q", got.Name)
	}
	if got := board.ByRewardID("rw-2"); got == nil || got.Name != "drum" {
		t.Errorf("ByRewardID(rw-2) = %+v", got)
	}
	if got := board.ByRewardID("rw-404"); got != nil {
		t.Errorf("unknown reward id matched %q", got.Name)
	}
}

func TestBoardSetEnabled(t *testing.T) {
	board := NewBoard([]db.SoundReward{{Name: "drum", Enabled: true}}, nil)
	if !board.SetEnabled("drum", false) {
		t.Fatal("SetEnabled known sound = false")
	}
	if board.Sounds()[0].Enabled {
		t.Error("sound still enabled")
	}
	if board.SetEnabled("nope", true) {
		t.Error("SetEnabled unknown sound = true")
	}
}

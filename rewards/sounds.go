package rewards

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
)

// ErrSlotsBusy is returned by Board.Play when every sound slot is occupied.
var ErrSlotsBusy = fmt.Errorf("all sound slots busy")

// Board maps channel-point rewards to local sound files and plays them on a
// dedicated set of playback slots, separate from the TTS scheduler's slots.
type Board struct {
	mu     sync.Mutex
	sounds []db.SoundReward
	slots  []playback.Slot
}

func NewBoard(sounds []db.SoundReward, slots []playback.Slot) *Board {
	return &Board{sounds: sounds, slots: slots}
}

// Sounds returns a snapshot of the configured sounds.
func (b *Board) Sounds() []db.SoundReward {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]db.SoundReward, len(b.sounds))
	copy(out, b.sounds)
	return out
}

// ByRewardID returns the sound bound to a remote reward, or nil.
func (b *Board) ByRewardID(rewardID string) *db.SoundReward {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.sounds {
		if b.sounds[i].RewardID == rewardID && b.sounds[i].RewardID != "" {
			s := b.sounds[i]
			return &s
		}
	}
	return nil
}

// SetRewardID records the remote reward bound to a named sound.
func (b *Board) SetRewardID(name, rewardID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.sounds {
		if b.sounds[i].Name == name {
			b.sounds[i].RewardID = rewardID
			return
		}
	}
}

// SetEnabled flips a sound's enabled flag, returning false when no sound with
// that name exists.
func (b *Board) SetEnabled(name string, enabled bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.sounds {
		if b.sounds[i].Name == name {
			b.sounds[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Play assigns the sound's file to the first idle slot. Returns ErrSlotsBusy
// when no slot is free, so the caller can cancel the redemption.
func (b *Board) Play(s db.SoundReward) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, slot := range b.slots {
		if slot.Busy() {
			continue
		}
		return slot.Play(playback.Request{
			Audio: speech.Audio{URL: s.File},
			Rate:  1.0,
			Owner: "sound:" + strings.ToLower(s.Name),
		})
	}
	return ErrSlotsBusy
}

package playback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
)

// ExecSlot plays audio by shelling out to a local player. Playback runs in a
// goroutine; the slot stays busy until the player process exits, then invokes
// the scheduler's idle callback.
type ExecSlot struct {
	// Player is the player binary. With an empty value ffplay is used.
	Player string
	Name   string

	mu     sync.Mutex
	busy   bool
	owner  string
	onIdle func()
}

const defaultPlayer = "ffplay"

func (s *ExecSlot) SetOnIdle(fn func()) {
	s.mu.Lock()
	s.onIdle = fn
	s.mu.Unlock()
}

func (s *ExecSlot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *ExecSlot) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *ExecSlot) Play(req Request) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return fmt.Errorf("slot %s busy", s.Name)
	}
	s.busy = true
	s.owner = req.Owner
	s.mu.Unlock()
	go s.run(req)
	return nil
}

func (s *ExecSlot) run(req Request) {
	start := time.Now()
	defer func() {
		telemetry.PlaybackDuration.Observe(time.Since(start).Seconds())
		s.mu.Lock()
		s.busy = false
		cb := s.onIdle
		s.mu.Unlock()
		if cb != nil {
			cb()
		}
	}()

	source := req.Audio.URL
	if len(req.Audio.Data) > 0 {
		f, err := os.CreateTemp("", "tts-*.mp3")
		if err != nil {
			slog.Error("playback temp file", slog.Any("err", err))
			return
		}
		if _, err := f.Write(req.Audio.Data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			slog.Error("playback temp write", slog.Any("err", err))
			return
		}
		_ = f.Close()
		defer func() { _ = os.Remove(f.Name()) }()
		source = f.Name()
	}
	if source == "" {
		return
	}

	player := s.Player
	if player == "" {
		player = defaultPlayer
	}
	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	if req.Rate != 0 && req.Rate != 1.0 {
		args = append(args, "-af", atempoFilter(req.Rate))
	}
	args = append(args, source)

	cmd := exec.CommandContext(context.Background(), player, args...)
	if err := cmd.Run(); err != nil {
		slog.Warn("player exited with error", slog.String("slot", s.Name), slog.Any("err", err))
	}
}

// atempoFilter chains atempo stages so rates outside ffmpeg's per-stage
// [0.5, 2.0] window still apply.
func atempoFilter(rate float64) string {
	var stages []string
	for rate > 2.0 {
		stages = append(stages, "atempo=2.0")
		rate /= 2.0
	}
	for rate < 0.5 {
		stages = append(stages, "atempo=0.5")
		rate /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%.4f", rate))
	return strings.Join(stages, ",")
}

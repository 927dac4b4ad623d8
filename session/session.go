// Package session ties the chat transport, voice resolution, synthesis, the
// playback scheduler, and the reward bridge into one explicitly owned object.
// The surrounding application constructs a Session, starts it, and disposes
// of it; there is no package-level connection state.
package session

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/Voxel-Fox-Ltd/twitch-tts/chat"
	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
	"github.com/Voxel-Fox-Ltd/twitch-tts/rewards"
	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
	"github.com/Voxel-Fox-Ltd/twitch-tts/voice"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultIgnoredUsers are bot accounts whose messages are never spoken.
var DefaultIgnoredUsers = []string{"cloudbot", "streamlabs"}

// Options collects everything a Session needs. Transport, Scheduler, and
// Synth are required; Bridge and DB are optional.
type Options struct {
	Transport *chat.Transport
	Scheduler *playback.Scheduler
	Synth     speech.Synthesizer
	Bridge    *rewards.Bridge
	DB        *sql.DB

	Filter       chat.FilterConfig
	Catalog      []voice.Voice
	IgnoredUsers []string
}

// Session owns one chat-to-speech pipeline. Construct with New, then Start;
// Close tears everything down.
type Session struct {
	transport *chat.Transport
	scheduler *playback.Scheduler
	synth     speech.Synthesizer
	bridge    *rewards.Bridge
	dbx       *sql.DB

	filter  chat.FilterConfig
	catalog []voice.Voice
	ignored map[string]bool

	cancel context.CancelFunc
}

func New(opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = voice.DefaultCatalog()
	}
	if opts.IgnoredUsers == nil {
		opts.IgnoredUsers = DefaultIgnoredUsers
	}
	s := &Session{
		transport: opts.Transport,
		scheduler: opts.Scheduler,
		synth:     opts.Synth,
		bridge:    opts.Bridge,
		dbx:       opts.DB,
		filter:    opts.Filter,
		catalog:   opts.Catalog,
		ignored:   make(map[string]bool, len(opts.IgnoredUsers)),
	}
	for _, u := range opts.IgnoredUsers {
		s.ignored[strings.ToLower(u)] = true
	}
	return s
}

// Start connects the transport (and bridge, when configured) and begins
// handling messages. The passed context bounds the session lifetime.
func (s *Session) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.transport.OnMessage = func(m *chat.Message) { s.handleMessage(ctx, m) }
	s.transport.OnDisconnect = func(err error) {
		telemetry.SetConnected(false)
		telemetry.TransportDisconnects.Inc()
		slog.Warn("chat transport disconnected", slog.Any("err", err))
	}

	if err := s.transport.Connect(ctx); err != nil {
		s.cancel()
		return err
	}
	telemetry.SetConnected(true)

	if s.bridge != nil {
		if err := s.bridge.Start(ctx); err != nil {
			slog.Error("reward bridge start failed", slog.Any("err", err))
		}
	}
	return nil
}

// Close disconnects the transport and bridge. Safe to call more than once.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.transport.Close()
	if s.bridge != nil {
		s.bridge.Close()
	}
}

// Join adds a channel to the running session.
func (s *Session) Join(channel string) error {
	return s.transport.Join(channel)
}

// State reports the transport's lifecycle position.
func (s *Session) State() chat.State {
	return s.transport.State()
}

// QueueDepth reports the number of requests waiting for a playback slot.
func (s *Session) QueueDepth() int {
	return s.scheduler.Len()
}

// handleMessage is the per-message pipeline: ignore-list, rate prefix,
// speakability filter, voice resolution, synthesis, enqueue, utterance log.
// Any failure drops the utterance and leaves the session running.
func (s *Session) handleMessage(ctx context.Context, m *chat.Message) {
	telemetry.MessagesParsed.Inc()
	if s.ignored[m.Username] {
		return
	}

	rate, body := chat.SplitRate(m.Body)
	m.Body = body
	spoken := m.Speakable(s.filter)
	if spoken == "" {
		telemetry.MessagesFiltered.Inc()
		return
	}

	v, ok := voice.Resolve(m.Username, s.overrides(ctx), s.catalog)
	if !ok {
		telemetry.MessagesFiltered.Inc()
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "session", "synthesize",
		attribute.String("voice", v.Name),
		attribute.String("channel", m.Channel),
	)
	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, spoken, v)
	telemetry.SynthesisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.SynthesisFailures.Inc()
		telemetry.RecordError(span, err)
		span.End()
		slog.Error("synthesis failed",
			slog.String("user", m.Username), slog.Any("err", err))
		return
	}
	span.End()

	s.scheduler.Enqueue(playback.Request{Audio: audio, Rate: rate, Owner: m.Username})
	telemetry.MessagesSpoken.Inc()

	if s.dbx != nil {
		if err := db.InsertUtterance(ctx, s.dbx, m.Channel, m.Username, m.Body, spoken, v.Name, rate); err != nil {
			slog.Warn("utterance log failed", slog.Any("err", err))
		}
	}
}

// overrides snapshots the voice-override table. Each message sees the table
// as of its own lookup; a failed read behaves as an empty table.
func (s *Session) overrides(ctx context.Context) voice.Overrides {
	if s.dbx == nil {
		return nil
	}
	ov, err := db.ListVoiceOverrides(ctx, s.dbx)
	if err != nil {
		slog.Warn("voice override lookup failed", slog.Any("err", err))
		return nil
	}
	return ov
}

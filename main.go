// Command twitch-tts is the main entrypoint for the chat TTS service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Opens the chat transport, resolves voices, synthesizes speech, and
//     plays it through a local audio player.
//   - Bridges channel-point redemptions to the sound board.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Voxel-Fox-Ltd/twitch-tts/chat"
	"github.com/Voxel-Fox-Ltd/twitch-tts/config"
	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/oauth"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
	"github.com/Voxel-Fox-Ltd/twitch-tts/rewards"
	"github.com/Voxel-Fox-Ltd/twitch-tts/server"
	"github.com/Voxel-Fox-Ltd/twitch-tts/session"
	"github.com/Voxel-Fox-Ltd/twitch-tts/speech"
	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
	"github.com/Voxel-Fox-Ltd/twitch-tts/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("twitch-tts", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config edits persisted through the /config endpoint win over the
	// environment on the next start.
	cfg.OverlayKV(ctx, database)

	// Prefer the stored (refreshable) token over the env one.
	token := cfg.TwitchAccessToken
	if stored, _, _, _, err := db.GetOAuthToken(ctx, database, "twitch"); err == nil && stored != "" {
		token = stored
	}

	// Resolve the broadcaster identity once; the transport repeats the lookup
	// per connect for its login name.
	idc := &twitchapi.IdentityClient{}
	var userID string
	if token != "" {
		ictx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if id, err := idc.Userinfo(ictx, token); err != nil {
			slog.Warn("identity lookup failed", slog.Any("err", err))
		} else {
			userID = id.Subject
			slog.Info("identity resolved", slog.String("login", id.PreferredUsername))
		}
		cancel()
	}

	// Synthesis backend
	var synth speech.Synthesizer
	if cfg.SynthBackend == "polly" {
		synth = &speech.PollyClient{
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Region:          cfg.AWSRegion,
		}
	} else {
		synth = &speech.StreamElementsClient{}
	}

	// Playback slots and scheduler
	slots := make([]playback.Slot, cfg.TTSSlots)
	for i := range slots {
		slots[i] = &playback.ExecSlot{Player: cfg.PlayerBin, Name: "tts-" + string(rune('a'+i))}
	}
	scheduler := playback.NewScheduler(cfg.OutputPolicy, slots, cfg.PrimarySlots)

	// Sound board
	soundSlots := make([]playback.Slot, cfg.SoundSlots)
	for i := range soundSlots {
		soundSlots[i] = &playback.ExecSlot{Player: cfg.PlayerBin, Name: "sound-" + string(rune('a'+i))}
	}
	sounds, err := db.ListSoundRewards(ctx, database)
	if err != nil {
		slog.Warn("sound reward lookup failed", slog.Any("err", err))
	}
	board := rewards.NewBoard(sounds, soundSlots)

	var bridge *rewards.Bridge
	if userID != "" && cfg.TwitchClientID != "" {
		helix := &twitchapi.HelixClient{ClientID: cfg.TwitchClientID, Token: token}
		bridge = rewards.NewBridge(token, userID, helix, board, database, nil)
	}

	transport := chat.NewTransport(token, cfg.TwitchChannels,
		chat.DialWebsocket(chat.TwitchIRCURL),
		func(ctx context.Context, token string) (string, error) {
			id, err := idc.Userinfo(ctx, token)
			if err != nil {
				return "", err
			}
			return id.PreferredUsername, nil
		})

	sess := session.New(session.Options{
		Transport: transport,
		Scheduler: scheduler,
		Synth:     synth,
		Bridge:    bridge,
		DB:        database,
		Filter: chat.FilterConfig{
			Roles: cfg.RoleMask,
			Rules: speech.DefaultRules(),
		},
	})
	defer sess.Close()

	if err := cfg.ValidateChatReady(); err != nil {
		slog.Warn("chat session disabled", slog.Any("err", err))
	} else if err := sess.Start(ctx); err != nil {
		slog.Error("chat session start failed", slog.Any("err", err))
	}

	// Keep the stored Twitch token fresh for the next session.
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute,
			oauth.TwitchRefresher(cfg.TwitchClientID, cfg.TwitchClientSecret), nil)
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/config)
	handlers := server.NewHandlers(database, sess, scheduler, board)
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

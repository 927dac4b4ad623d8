// Package rewards bridges Twitch channel-point redemptions to the local sound
// board. It keeps a PubSub socket listening for redemption events, creates
// Helix custom rewards for configured sounds, and reconciles reward
// enabled/disabled state on a timer.
package rewards

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Voxel-Fox-Ltd/twitch-tts/chat"
	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/telemetry"
	"github.com/Voxel-Fox-Ltd/twitch-tts/twitchapi"
)

// PubSubURL is Twitch's production PubSub endpoint.
const PubSubURL = "wss://pubsub-edge.twitch.tv"

const (
	defaultPingInterval      = 4 * time.Minute
	defaultReconcileInterval = 10 * time.Second
	defaultReconcileDelay    = 10 * time.Second
	reconnectDelay           = 2 * time.Second
)

// Bridge owns the PubSub connection for one broadcaster. Construct with
// NewBridge, then Start; Close tears down the socket and all timers.
type Bridge struct {
	Token  string
	UserID string
	Helix  *twitchapi.HelixClient
	Board  *Board
	DB     *sql.DB
	Dial   chat.Dialer

	PingInterval      time.Duration
	ReconcileInterval time.Duration
	ReconcileDelay    time.Duration

	mu     sync.Mutex
	sock   chat.Socket
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewBridge(token, userID string, helix *twitchapi.HelixClient, board *Board, dbx *sql.DB, dial chat.Dialer) *Bridge {
	if dial == nil {
		dial = chat.DialWebsocket(PubSubURL)
	}
	return &Bridge{
		Token:             token,
		UserID:            userID,
		Helix:             helix,
		Board:             board,
		DB:                dbx,
		Dial:              dial,
		PingInterval:      defaultPingInterval,
		ReconcileInterval: defaultReconcileInterval,
		ReconcileDelay:    defaultReconcileDelay,
	}
}

// envelope is the outer PubSub frame.
type envelope struct {
	Type  string `json:"type"`
	Nonce string `json:"nonce,omitempty"`
	Error string `json:"error,omitempty"`
	Data  struct {
		Topic   string `json:"topic,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"data,omitempty"`
}

type listenFrame struct {
	Type  string `json:"type"`
	Nonce string `json:"nonce"`
	Data  struct {
		Topics    []string `json:"topics"`
		AuthToken string   `json:"auth_token"`
	} `json:"data"`
}

// redemptionEvent is the inner payload of a channel-points MESSAGE frame.
type redemptionEvent struct {
	Type string `json:"type"`
	Data struct {
		Redemption struct {
			ID   string `json:"id"`
			User struct {
				Login string `json:"login"`
			} `json:"user"`
			Reward struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"reward"`
		} `json:"redemption"`
	} `json:"data"`
}

// Start connects to PubSub, subscribes to the channel-points topic, creates
// rewards for any sound that lacks one, and launches the keep-alive and
// reconcile timers. It returns once the initial subscription is sent.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.ctx != nil {
		b.mu.Unlock()
		return fmt.Errorf("bridge already started")
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	if err := b.connect(); err != nil {
		b.mu.Lock()
		b.cancel()
		b.ctx, b.cancel = nil, nil
		b.mu.Unlock()
		return err
	}
	if err := b.syncRewards(b.ctx); err != nil {
		slog.Warn("initial reward sync failed", slog.Any("err", err))
	}

	b.wg.Add(2)
	go b.pingLoop()
	go b.reconcileLoop()
	return nil
}

// Close shuts down the socket and waits for the timer goroutines.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
	sock := b.sock
	b.sock = nil
	b.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}
	b.wg.Wait()
}

func (b *Bridge) connect() error {
	sock, err := b.Dial(b.ctx)
	if err != nil {
		return fmt.Errorf("dial pubsub: %w", err)
	}

	var frame listenFrame
	frame.Type = "LISTEN"
	frame.Nonce = uuid.NewString()
	frame.Data.Topics = []string{"channel-points-channel-v1." + b.UserID}
	frame.Data.AuthToken = b.Token
	raw, err := json.Marshal(frame)
	if err != nil {
		_ = sock.Close()
		return err
	}
	if err := sock.WriteMessage(string(raw)); err != nil {
		_ = sock.Close()
		return fmt.Errorf("send listen: %w", err)
	}

	b.mu.Lock()
	b.sock = sock
	b.mu.Unlock()

	go b.readLoop(sock)
	slog.Info("pubsub connected", slog.String("user_id", b.UserID))
	return nil
}

// reconnect runs after an unexpected socket loss or a RECONNECT frame. It
// retries with a fixed delay until the bridge is closed.
func (b *Bridge) reconnect() {
	for {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return
		}
		select {
		case <-b.ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
		if err := b.connect(); err != nil {
			slog.Warn("pubsub reconnect failed", slog.Any("err", err))
			continue
		}
		return
	}
}

func (b *Bridge) readLoop(sock chat.Socket) {
	for {
		line, err := sock.ReadMessage()
		if err != nil {
			b.mu.Lock()
			stale := b.sock != sock
			closed := b.closed
			if !stale {
				b.sock = nil
			}
			b.mu.Unlock()
			if stale || closed {
				return
			}
			slog.Warn("pubsub socket closed", slog.Any("err", err))
			b.reconnect()
			return
		}
		b.handleFrame(line)
	}
}

func (b *Bridge) handleFrame(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.Debug("pubsub frame unparseable", slog.Any("err", err))
		return
	}
	switch env.Type {
	case "PONG":
	case "RESPONSE":
		if env.Error != "" {
			slog.Error("pubsub listen rejected", slog.String("error", env.Error))
		}
	case "RECONNECT":
		slog.Info("pubsub reconnect requested")
		b.mu.Lock()
		sock := b.sock
		b.sock = nil
		b.mu.Unlock()
		if sock != nil {
			_ = sock.Close()
		}
		go b.reconnect()
	case "MESSAGE":
		var ev redemptionEvent
		if err := json.Unmarshal([]byte(env.Data.Message), &ev); err != nil {
			slog.Debug("pubsub message unparseable", slog.Any("err", err))
			return
		}
		if ev.Type == "reward-redeemed" {
			b.handleRedemption(ev)
		}
	}
}

// handleRedemption resolves one redemption: unknown rewards and rewards whose
// sound has no idle slot are canceled so the points are refunded; otherwise
// the sound plays and the redemption is fulfilled.
func (b *Bridge) handleRedemption(ev redemptionEvent) {
	ctx, cancel := context.WithTimeout(b.ctx, 15*time.Second)
	defer cancel()

	red := ev.Data.Redemption
	log := slog.With(
		slog.String("redemption_id", red.ID),
		slog.String("reward", red.Reward.Title),
		slog.String("user", red.User.Login),
	)

	sound := b.Board.ByRewardID(red.Reward.ID)
	if sound == nil || !sound.Enabled {
		log.Info("redemption canceled: no matching sound")
		b.resolve(ctx, red.Reward.ID, red.ID, twitchapi.RedemptionCanceled)
		return
	}
	if err := b.Board.Play(*sound); err != nil {
		log.Info("redemption canceled: sound slots busy")
		b.resolve(ctx, red.Reward.ID, red.ID, twitchapi.RedemptionCanceled)
		return
	}
	log.Info("redemption fulfilled", slog.String("sound", sound.Name))
	b.resolve(ctx, red.Reward.ID, red.ID, twitchapi.RedemptionFulfilled)
}

func (b *Bridge) resolve(ctx context.Context, rewardID, redemptionID, status string) {
	if err := b.Helix.ResolveRedemption(ctx, b.UserID, rewardID, redemptionID, status); err != nil {
		slog.Error("resolve redemption", slog.String("status", status), slog.Any("err", err))
		return
	}
	switch status {
	case twitchapi.RedemptionFulfilled:
		telemetry.RedemptionsFulfilled.Inc()
	case twitchapi.RedemptionCanceled:
		telemetry.RedemptionsCanceled.Inc()
	}
}

// syncRewards creates a Helix custom reward for every configured sound that
// does not have one yet and records the new reward id.
func (b *Bridge) syncRewards(ctx context.Context) error {
	for _, s := range b.Board.Sounds() {
		if s.RewardID != "" {
			continue
		}
		created, err := b.Helix.CreateCustomReward(ctx, b.UserID, twitchapi.CustomReward{
			Title:           s.Name,
			Cost:            500,
			IsEnabled:       s.Enabled,
			BackgroundColor: "#A970FF",
		})
		if err != nil {
			return fmt.Errorf("create reward %q: %w", s.Name, err)
		}
		b.Board.SetRewardID(s.Name, created.ID)
		if b.DB != nil {
			if err := db.SetSoundRewardID(ctx, b.DB, s.Name, created.ID); err != nil {
				slog.Error("persist reward id", slog.String("sound", s.Name), slog.Any("err", err))
			}
		}
		slog.Info("created channel-point reward",
			slog.String("sound", s.Name), slog.String("reward_id", created.ID))
	}
	return nil
}

// reconcile pushes each sound's local enabled flag to the matching remote
// reward when the two disagree. Local state wins.
func (b *Bridge) reconcile(ctx context.Context) {
	remote, err := b.Helix.ListCustomRewards(ctx, b.UserID)
	if err != nil {
		slog.Warn("list rewards", slog.Any("err", err))
		return
	}
	byID := make(map[string]twitchapi.CustomReward, len(remote))
	for _, r := range remote {
		byID[r.ID] = r
	}
	for _, s := range b.Board.Sounds() {
		if s.RewardID == "" {
			continue
		}
		r, ok := byID[s.RewardID]
		if !ok || r.IsEnabled == s.Enabled {
			continue
		}
		if err := b.Helix.SetRewardEnabled(ctx, b.UserID, s.RewardID, s.Enabled); err != nil {
			slog.Warn("patch reward enabled",
				slog.String("sound", s.Name), slog.Any("err", err))
		}
	}
}

func (b *Bridge) pingLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			sock := b.sock
			b.mu.Unlock()
			if sock == nil {
				continue
			}
			if err := sock.WriteMessage(`{"type":"PING"}`); err != nil {
				slog.Warn("pubsub ping failed", slog.Any("err", err))
			}
		}
	}
}

func (b *Bridge) reconcileLoop() {
	defer b.wg.Done()
	select {
	case <-b.ctx.Done():
		return
	case <-time.After(b.ReconcileDelay):
	}
	ticker := time.NewTicker(b.ReconcileInterval)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(b.ctx, 8*time.Second)
		b.reconcile(ctx)
		cancel()
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

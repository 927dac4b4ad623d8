package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Socket is the minimal capability set the transport needs from its
// underlying connection. Production uses a websocket (see DialWebsocket);
// tests inject a fake.
type Socket interface {
	// ReadMessage blocks for the next delivered batch. A batch may carry
	// several newline-separated lines.
	ReadMessage() (string, error)
	WriteMessage(s string) error
	Close() error
}

// Dialer opens a Socket to the chat endpoint.
type Dialer func(ctx context.Context) (Socket, error)

// IdentityFunc resolves the access token's login name before the socket is
// opened. Failure aborts the connection attempt without opening a socket.
type IdentityFunc func(ctx context.Context, token string) (string, error)

// State is the transport's connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateJoining
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoining:
		return "joining"
	case StateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// ErrLoginFailed reports the server's failed-login notice during handshake.
var ErrLoginFailed = errors.New("chat login unsuccessful")

// ErrHandshakeTimeout reports that the welcome acknowledgment never arrived
// within the bounded retry budget.
var ErrHandshakeTimeout = errors.New("no welcome acknowledgment from server")

const (
	welcomeSuffix    = ":Welcome, GLHF!"
	loginFailedLine  = ":tmi.twitch.tv NOTICE * :Login unsuccessful"
	serverLinePrefix = ":tmi.twitch.tv "

	defaultWelcomeAttempts = 5
	defaultWelcomeInterval = 200 * time.Millisecond
)

// Transport is a single logical chat session: it authenticates over a
// line-oriented socket, joins channels, answers keep-alive pings, and hands
// parsed messages to OnMessage. One Transport supports one connection at a
// time; Close then Connect starts a fresh session.
type Transport struct {
	Token    string
	Dial     Dialer
	Identity IdentityFunc

	// OnMessage receives every successfully parsed chat message, in arrival
	// order. OnDisconnect fires once per session teardown not initiated by
	// Close.
	OnMessage    func(*Message)
	OnDisconnect func(error)

	WelcomeAttempts int
	WelcomeInterval time.Duration

	mu       sync.Mutex
	nick     string
	channels []string
	sock     Socket
	state    State
	welcomed bool
}

// NewTransport builds a transport for the given token and initial channel
// set. Channels added before Connect are joined during the handshake.
func NewTransport(token string, channels []string, dial Dialer, identity IdentityFunc) *Transport {
	t := &Transport{Token: token, Dial: dial, Identity: identity}
	for _, c := range channels {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			t.channels = append(t.channels, c)
		}
	}
	return t
}

// State reports the current lifecycle position.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect resolves the caller's identity, opens the socket, performs the
// credential handshake, and joins the configured channels. On any handshake
// failure the socket is torn down and an error returned; the transport is
// then reusable.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.sock != nil {
		t.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	t.state = StateConnecting
	t.mu.Unlock()

	nick, err := t.Identity(ctx, t.Token)
	if err != nil {
		t.setState(StateDisconnected)
		return fmt.Errorf("identity lookup: %w", err)
	}

	sock, err := t.Dial(ctx)
	if err != nil {
		t.setState(StateDisconnected)
		return fmt.Errorf("dial chat: %w", err)
	}

	t.mu.Lock()
	t.nick = strings.ToLower(nick)
	t.sock = sock
	t.welcomed = false
	t.state = StateAuthenticating
	t.mu.Unlock()

	go t.readLoop(sock)

	if err := sock.WriteMessage("PASS oauth:" + t.Token); err != nil {
		t.Close()
		return fmt.Errorf("send credentials: %w", err)
	}
	if err := sock.WriteMessage("NICK " + t.nick); err != nil {
		t.Close()
		return fmt.Errorf("send credentials: %w", err)
	}

	if err := t.awaitWelcome(ctx); err != nil {
		t.Close()
		return err
	}

	if err := sock.WriteMessage("CAP REQ :twitch.tv/tags"); err != nil {
		t.Close()
		return fmt.Errorf("request tags capability: %w", err)
	}

	t.setState(StateJoining)
	t.mu.Lock()
	channels := append([]string(nil), t.channels...)
	t.mu.Unlock()
	for _, c := range channels {
		if err := sock.WriteMessage("JOIN #" + c); err != nil {
			t.Close()
			return fmt.Errorf("join %s: %w", c, err)
		}
	}
	t.setState(StateReady)
	slog.Info("chat transport ready", slog.String("nick", t.nick), slog.Int("channels", len(channels)))
	return nil
}

// awaitWelcome polls the welcome flag a bounded number of times. Exceeding
// the budget reports ErrHandshakeTimeout; no join command has been sent at
// that point.
func (t *Transport) awaitWelcome(ctx context.Context) error {
	attempts := t.WelcomeAttempts
	if attempts <= 0 {
		attempts = defaultWelcomeAttempts
	}
	interval := t.WelcomeInterval
	if interval <= 0 {
		interval = defaultWelcomeInterval
	}
	for i := 0; i < attempts; i++ {
		if t.isWelcomed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	if t.isWelcomed() {
		return nil
	}
	return ErrHandshakeTimeout
}

func (t *Transport) isWelcomed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.welcomed
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Join adds a channel. While connected the join command is sent immediately;
// while disconnected the channel is queued for the next connection.
func (t *Transport) Join(channel string) error {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return fmt.Errorf("empty channel")
	}
	t.mu.Lock()
	t.channels = append(t.channels, channel)
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return nil
	}
	return sock.WriteMessage("JOIN #" + channel)
}

// Close tears down the socket and resets handshake state. Closing an
// already-closed transport is a no-op.
func (t *Transport) Close() {
	t.mu.Lock()
	sock := t.sock
	t.sock = nil
	t.welcomed = false
	t.state = StateDisconnected
	t.mu.Unlock()
	if sock == nil {
		return
	}
	if err := sock.Close(); err != nil {
		slog.Debug("socket close", slog.Any("err", err))
	}
}

// readLoop drains the socket until it fails, classifying each line before it
// can reach the message parser. It exits silently when the session was closed
// locally.
func (t *Transport) readLoop(sock Socket) {
	for {
		batch, err := sock.ReadMessage()
		if err != nil {
			t.disconnected(sock, err)
			return
		}
		for _, raw := range strings.Split(batch, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if line == loginFailedLine {
				slog.Warn("chat login unsuccessful")
				t.disconnected(sock, ErrLoginFailed)
				return
			}
			if strings.HasSuffix(line, welcomeSuffix) {
				t.mu.Lock()
				t.welcomed = true
				t.mu.Unlock()
				continue
			}
			if strings.HasPrefix(line, serverLinePrefix) {
				continue
			}
			if payload, ok := strings.CutPrefix(line, "PING "); ok {
				if err := sock.WriteMessage("PONG " + payload); err != nil {
					slog.Debug("pong write", slog.Any("err", err))
				}
				continue
			}
			msg, err := Parse(line)
			if err != nil {
				continue // malformed line, connection unaffected
			}
			if t.OnMessage != nil {
				t.OnMessage(msg)
			}
		}
	}
}

// disconnected handles a socket-initiated teardown. If Close already ran (or
// another error won the race) the event is dropped.
func (t *Transport) disconnected(sock Socket, err error) {
	t.mu.Lock()
	if t.sock != sock {
		t.mu.Unlock()
		return
	}
	t.sock = nil
	t.welcomed = false
	t.state = StateDisconnected
	cb := t.OnDisconnect
	t.mu.Unlock()
	_ = sock.Close()
	slog.Info("chat transport disconnected", slog.Any("err", err))
	if cb != nil {
		cb(err)
	}
}

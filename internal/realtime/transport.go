package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// State describes the transport's channel, not the game.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
	// StateFallback is the terminal degraded state entered after the
	// reconnect budget is spent. The caller keeps working through direct
	// request/response calls; no further automatic reconnects happen.
	StateFallback State = "fallback"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
	defaultDialTimeout = 10 * time.Second
	maxMessageBytes    = 1 << 20
)

// TransportConfig wires a Transport to one game channel.
type TransportConfig struct {
	// URL is the websocket address of the game's channel.
	URL string
	// OnSnapshot receives every GAME_SNAPSHOT pushed on the channel.
	OnSnapshot func(GameSnapshot)
	// OnStateChange, if set, is called on every connection state change.
	OnStateChange func(State)

	MaxAttempts int
	BaseDelay   time.Duration
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Transport maintains a single logical subscription to a per-game channel.
// It reconnects with exponential backoff (base × 2^(attempt-1)) up to
// MaxAttempts, after which it lands in StateFallback until Connect or
// Disconnect is called explicitly. A game channel must be owned by at most
// one connected Transport per client.
type Transport struct {
	cfg    TransportConfig
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	attempts   int
	conn       *websocket.Conn
	readCancel context.CancelFunc
	retry      *time.Timer
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{cfg: cfg, logger: logger, state: StateDisconnected}
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect opens the channel. It is a no-op while already connecting or
// connected. The context bounds the whole subscription: cancelling it stops
// dialing, reading and any pending reconnect.
func (t *Transport) Connect(ctx context.Context) {
	t.mu.Lock()
	if t.state == StateConnecting || t.state == StateConnected {
		t.mu.Unlock()
		return
	}
	t.stopRetryLocked()
	t.state = StateConnecting
	t.mu.Unlock()

	t.notify(StateConnecting)
	go t.dial(ctx)
}

// Disconnect tears down any open channel, cancels a pending reconnect, and
// settles in StateDisconnected.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.stopRetryLocked()
	if t.readCancel != nil {
		t.readCancel()
		t.readCancel = nil
	}
	conn := t.conn
	t.conn = nil
	changed := t.state != StateDisconnected
	t.state = StateDisconnected
	t.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	if changed {
		t.notify(StateDisconnected)
	}
}

func (t *Transport) dial(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dctx, t.cfg.URL, nil)
	cancel()
	if err != nil {
		t.logger.Debug("channel dial failed", "url", t.cfg.URL, "error", err)
		t.connectionLost(ctx)
		return
	}

	t.mu.Lock()
	if t.state != StateConnecting {
		// Disconnected while the dial was in flight.
		t.mu.Unlock()
		conn.CloseNow()
		return
	}
	conn.SetReadLimit(maxMessageBytes)
	rctx, rcancel := context.WithCancel(ctx)
	t.conn = conn
	t.readCancel = rcancel
	t.attempts = 0
	t.state = StateConnected
	t.mu.Unlock()

	t.logger.Info("realtime channel connected", "url", t.cfg.URL)
	t.notify(StateConnected)
	go t.readLoop(ctx, rctx, conn)
}

func (t *Transport) readLoop(ctx, rctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(rctx)
		if err != nil {
			t.mu.Lock()
			if t.conn != conn {
				// Explicit disconnect already cleaned up.
				t.mu.Unlock()
				return
			}
			t.conn = nil
			t.readCancel = nil
			t.mu.Unlock()

			conn.CloseNow()
			t.logger.Debug("realtime channel closed", "error", err)
			t.connectionLost(ctx)
			return
		}
		t.deliver(data)
	}
}

// deliver parses one inbound message. Malformed or unrecognized messages
// are dropped silently; they must never take the subscription down.
func (t *Transport) deliver(data []byte) {
	env, ok := ParseEvent(data)
	if !ok {
		t.logger.Debug("dropping unparseable channel message")
		return
	}
	if env.Type != EventGameSnapshot || t.cfg.OnSnapshot == nil {
		return
	}
	var snap GameSnapshot
	if err := json.Unmarshal(env.Payload, &snap); err != nil {
		t.logger.Debug("dropping malformed snapshot payload", "error", err)
		return
	}
	t.cfg.OnSnapshot(snap)
}

// connectionLost runs after a failed dial or an unexpected close. It either
// schedules the next attempt or, once the budget is spent, parks the
// transport in fallback.
func (t *Transport) connectionLost(ctx context.Context) {
	t.mu.Lock()
	if t.state == StateDisconnected || t.state == StateFallback {
		t.mu.Unlock()
		return
	}
	if t.attempts >= t.cfg.MaxAttempts || ctx.Err() != nil {
		t.state = StateFallback
		t.mu.Unlock()
		t.logger.Warn("realtime channel unavailable, switching to fallback mode",
			"attempts", t.cfg.MaxAttempts)
		t.notify(StateFallback)
		return
	}

	t.attempts++
	delay := t.cfg.BaseDelay << (t.attempts - 1)
	t.state = StateError
	t.retry = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.state != StateError {
			t.mu.Unlock()
			return
		}
		t.retry = nil
		t.state = StateConnecting
		t.mu.Unlock()
		t.notify(StateConnecting)
		t.dial(ctx)
	})
	attempt, max := t.attempts, t.cfg.MaxAttempts
	t.mu.Unlock()

	t.logger.Info("scheduling reconnect", "attempt", attempt, "max", max, "delay", delay)
	t.notify(StateError)
}

func (t *Transport) stopRetryLocked() {
	if t.retry != nil {
		t.retry.Stop()
		t.retry = nil
	}
}

func (t *Transport) notify(s State) {
	if t.cfg.OnStateChange != nil {
		t.cfg.OnStateChange(s)
	}
}

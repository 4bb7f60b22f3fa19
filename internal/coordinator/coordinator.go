// Package coordinator keeps one device's view of a game in sync with the
// backend. Mutations are validated locally first, then submitted; whatever
// snapshot the backend answers with (or pushes over the channel) replaces
// the local state wholesale. Last write wins, there is no merging.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

var ErrNoGame = errors.New("no game loaded")

// Backend is the slice of the API client the coordinator needs.
type Backend interface {
	Snapshot(ctx context.Context, gameID string) (realtime.GameSnapshot, error)
	SubmitTotal(ctx context.Context, gameID string, score int) (realtime.GameSnapshot, error)
	SubmitDarts(ctx context.Context, gameID string, darts []engine.Dart) (realtime.GameSnapshot, error)
	UndoTurn(ctx context.Context, gameID string) (realtime.GameSnapshot, error)
	ChannelURL(gameID string) string
}

// Config wires a Coordinator to one game.
type Config struct {
	Backend Backend
	GameID  string

	// OnUpdate fires after every adopted snapshot, whether it came from a
	// request response, a channel push, or an explicit refresh.
	OnUpdate func(realtime.GameSnapshot)
	// OnStateChange fires on realtime connection state transitions.
	OnStateChange func(realtime.State)

	Logger *slog.Logger
}

type Coordinator struct {
	backend Backend
	gameID  string
	logger  *slog.Logger

	onUpdate func(realtime.GameSnapshot)
	onState  func(realtime.State)

	mu        sync.Mutex
	snap      realtime.GameSnapshot
	loaded    bool
	transport *realtime.Transport
	connState realtime.State
}

func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		backend:   cfg.Backend,
		gameID:    cfg.GameID,
		logger:    logger,
		onUpdate:  cfg.OnUpdate,
		onState:   cfg.OnStateChange,
		connState: realtime.StateDisconnected,
	}
}

// Start loads the initial snapshot and opens the realtime channel. The
// context bounds the subscription's whole lifetime.
func (c *Coordinator) Start(ctx context.Context) error {
	snap, err := c.backend.Snapshot(ctx, c.gameID)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}
	c.adopt(snap)

	t := realtime.NewTransport(realtime.TransportConfig{
		URL:        c.backend.ChannelURL(c.gameID),
		OnSnapshot: c.adopt,
		OnStateChange: func(s realtime.State) {
			c.mu.Lock()
			c.connState = s
			c.mu.Unlock()
			if c.onState != nil {
				c.onState(s)
			}
		},
		Logger: c.logger,
	})

	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()

	t.Connect(ctx)
	return nil
}

// Stop closes the realtime channel.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t != nil {
		t.Disconnect()
	}
}

// Reconnect retries the channel after it fell back, resetting the backoff
// budget.
func (c *Coordinator) Reconnect(ctx context.Context) {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		return
	}
	t.Disconnect()
	t.Connect(ctx)
}

// ConnectionState reports the realtime channel state.
func (c *Coordinator) ConnectionState() realtime.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// Snapshot returns the last adopted snapshot.
func (c *Coordinator) Snapshot() (realtime.GameSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, c.loaded
}

// Refresh pulls the current snapshot directly. In fallback mode this is the
// only way state moves, so callers poll it after each action.
func (c *Coordinator) Refresh(ctx context.Context) error {
	snap, err := c.backend.Snapshot(ctx, c.gameID)
	if err != nil {
		return err
	}
	c.adopt(snap)
	return nil
}

// SubmitTotal scores a turn as an aggregate total. The score is validated
// against local state first; a rejected turn never reaches the backend and
// leaves all state untouched.
func (c *Coordinator) SubmitTotal(ctx context.Context, score int) error {
	g, err := c.localGame()
	if err != nil {
		return err
	}
	if _, err := engine.ApplyTotal(g, score); err != nil {
		return err
	}

	snap, err := c.backend.SubmitTotal(ctx, c.gameID, score)
	if err != nil {
		return err
	}
	c.adopt(snap)
	return nil
}

// SubmitDarts scores a turn dart by dart, with the same local-first
// validation as SubmitTotal.
func (c *Coordinator) SubmitDarts(ctx context.Context, darts []engine.Dart) error {
	g, err := c.localGame()
	if err != nil {
		return err
	}
	if _, err := engine.ApplyDarts(g, darts); err != nil {
		return err
	}

	snap, err := c.backend.SubmitDarts(ctx, c.gameID, darts)
	if err != nil {
		return err
	}
	c.adopt(snap)
	return nil
}

// Undo reverses the most recent turn.
func (c *Coordinator) Undo(ctx context.Context) error {
	snap, err := c.backend.UndoTurn(ctx, c.gameID)
	if err != nil {
		return err
	}
	c.adopt(snap)
	return nil
}

// adopt replaces local state with an authoritative snapshot.
func (c *Coordinator) adopt(snap realtime.GameSnapshot) {
	c.mu.Lock()
	c.snap = snap
	c.loaded = true
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

// localGame rebuilds the pure scoring state from the adopted snapshot so
// the rules engine can pre-validate a turn.
func (c *Coordinator) localGame() (engine.Game, error) {
	c.mu.Lock()
	snap := c.snap
	loaded := c.loaded
	c.mu.Unlock()

	if !loaded {
		return engine.Game{}, ErrNoGame
	}
	return GameFromSnapshot(snap), nil
}

// GameFromSnapshot converts a wire snapshot into engine state. Turn history
// beyond the snapshot's recent window is not needed for rule checks, so only
// the included turns are carried over.
func GameFromSnapshot(snap realtime.GameSnapshot) engine.Game {
	names := make([]string, len(snap.Players))
	seatByID := make(map[string]int, len(snap.Players))
	for i, p := range snap.Players {
		names[i] = p.Name
		seatByID[p.ID] = i
	}

	g := engine.Game{
		Settings: engine.Settings{
			StartingScore: snap.Game.Mode,
			DoubleOut:     snap.Game.DoubleOut,
			Players:       names,
		},
		Players: make([]engine.Player, len(snap.Players)),
		Phase:   engine.InProgress,
	}
	for i, p := range snap.Players {
		g.Players[i] = engine.Player{Name: p.Name, Remaining: p.Remaining}
	}
	if idx := snap.CurrentPlayerIndex(); idx >= 0 {
		g.CurrentPlayer = idx
	}

	for _, t := range snap.LastTurns {
		seat := seatByID[t.PlayerID]
		g.History = append(g.History, engine.Turn{
			Number:          t.TurnIndex,
			PlayerIndex:     seat,
			PlayerName:      names[seat],
			Darts:           t.Darts,
			ScoredPoints:    t.ScoredTotal,
			TurnTotal:       t.TurnTotal,
			RemainingAfter:  t.RemainingAfter,
			IsBust:          t.IsBust,
			IsWin:           t.IsWin,
			FinishDart:      t.FinishDart,
			PrevRemaining:   t.RemainingBefore,
			PrevPlayerIndex: seat,
		})
	}

	if snap.Game.Status == realtime.GameStatusCompleted {
		g.Phase = engine.GameOver
		if idx, ok := seatByID[snap.Game.WinnerPlayerID]; ok {
			turns := 0
			if n := len(g.History); n > 0 {
				turns = g.History[n-1].Number
			}
			g.Winner = &engine.Winner{
				PlayerIndex: idx,
				PlayerName:  names[idx],
				Turns:       turns,
			}
		}
	}

	return g
}

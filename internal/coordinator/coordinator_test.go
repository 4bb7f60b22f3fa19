package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

// fakeBackend records calls and serves canned snapshots.
type fakeBackend struct {
	mu      sync.Mutex
	snap    realtime.GameSnapshot
	totals  []int
	darts   [][]engine.Dart
	undos   int
	failAll error
}

func (f *fakeBackend) Snapshot(ctx context.Context, gameID string) (realtime.GameSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return realtime.GameSnapshot{}, f.failAll
	}
	return f.snap, nil
}

func (f *fakeBackend) SubmitTotal(ctx context.Context, gameID string, score int) (realtime.GameSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return realtime.GameSnapshot{}, f.failAll
	}
	f.totals = append(f.totals, score)
	return f.snap, nil
}

func (f *fakeBackend) SubmitDarts(ctx context.Context, gameID string, darts []engine.Dart) (realtime.GameSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return realtime.GameSnapshot{}, f.failAll
	}
	f.darts = append(f.darts, darts)
	return f.snap, nil
}

func (f *fakeBackend) UndoTurn(ctx context.Context, gameID string) (realtime.GameSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undos++
	return f.snap, nil
}

func (f *fakeBackend) ChannelURL(gameID string) string {
	return "ws://127.0.0.1:1/ws/games/" + gameID
}

func (f *fakeBackend) setSnap(snap realtime.GameSnapshot) {
	f.mu.Lock()
	f.snap = snap
	f.mu.Unlock()
}

func (f *fakeBackend) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.totals)
}

func activeSnapshot(remaining int) realtime.GameSnapshot {
	return realtime.GameSnapshot{
		Game: realtime.GameInfo{
			ID: "g1", Mode: 501, DoubleOut: true,
			Status:          realtime.GameStatusActive,
			CurrentPlayerID: "p1",
		},
		Players: []realtime.PlayerState{
			{ID: "p1", Name: "Anna", Remaining: remaining, SeatOrder: 0},
			{ID: "p2", Name: "Ben", Remaining: 501, SeatOrder: 1},
		},
	}
}

func newTestCoordinator(t *testing.T, backend *fakeBackend, onUpdate func(realtime.GameSnapshot)) *Coordinator {
	t.Helper()
	c := New(Config{Backend: backend, GameID: "g1", OnUpdate: onUpdate})
	// Adopt the initial snapshot without opening the channel; transport
	// behavior has its own tests.
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return c
}

func TestSubmitTotalValidatesLocally(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))
	c := newTestCoordinator(t, backend, nil)

	// Out of range never reaches the backend.
	if err := c.SubmitTotal(context.Background(), 181); !errors.Is(err, engine.ErrInvalidScore) {
		t.Fatalf("error = %v, want ErrInvalidScore", err)
	}
	if backend.totalCalls() != 0 {
		t.Fatalf("rejected turn reached the backend")
	}

	if err := c.SubmitTotal(context.Background(), 60); err != nil {
		t.Fatalf("SubmitTotal: %v", err)
	}
	if backend.totalCalls() != 1 {
		t.Fatalf("backend calls = %d, want 1", backend.totalCalls())
	}
}

func TestSubmitDartsValidatesLocally(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))
	c := newTestCoordinator(t, backend, nil)

	err := c.SubmitDarts(context.Background(), []engine.Dart{{Mult: engine.Triple, Value: 25}})
	if !errors.Is(err, engine.ErrInvalidDart) {
		t.Fatalf("error = %v, want ErrInvalidDart", err)
	}
	if len(backend.darts) != 0 {
		t.Fatal("invalid darts reached the backend")
	}

	if err := c.SubmitDarts(context.Background(), []engine.Dart{{Mult: engine.Triple, Value: 20}}); err != nil {
		t.Fatalf("SubmitDarts: %v", err)
	}
}

func TestSubmitAgainstFinishedGame(t *testing.T) {
	backend := &fakeBackend{}
	snap := activeSnapshot(0)
	snap.Game.Status = realtime.GameStatusCompleted
	snap.Game.CurrentPlayerID = ""
	snap.Game.WinnerPlayerID = "p1"
	backend.setSnap(snap)
	c := newTestCoordinator(t, backend, nil)

	if err := c.SubmitTotal(context.Background(), 60); !errors.Is(err, engine.ErrGameOver) {
		t.Fatalf("error = %v, want ErrGameOver", err)
	}
	if backend.totalCalls() != 0 {
		t.Fatal("turn against finished game reached the backend")
	}
}

func TestAdoptedSnapshotsReplaceState(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))

	var updates []realtime.GameSnapshot
	c := newTestCoordinator(t, backend, func(s realtime.GameSnapshot) {
		updates = append(updates, s)
	})

	// The backend answers the next call with different state; the local
	// snapshot is replaced wholesale, last write wins.
	backend.setSnap(activeSnapshot(441))
	if err := c.SubmitTotal(context.Background(), 60); err != nil {
		t.Fatalf("SubmitTotal: %v", err)
	}

	snap, ok := c.Snapshot()
	if !ok {
		t.Fatal("no snapshot loaded")
	}
	if snap.Players[0].Remaining != 441 {
		t.Errorf("remaining = %d, want 441", snap.Players[0].Remaining)
	}
	if len(updates) != 2 {
		t.Errorf("updates = %d, want 2 (refresh + submit)", len(updates))
	}
}

func TestRefreshPullsState(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))
	c := newTestCoordinator(t, backend, nil)

	backend.setSnap(activeSnapshot(321))
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap, _ := c.Snapshot()
	if snap.Players[0].Remaining != 321 {
		t.Errorf("remaining = %d, want 321", snap.Players[0].Remaining)
	}
}

func TestBackendErrorLeavesStateUntouched(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))
	c := newTestCoordinator(t, backend, nil)

	backend.mu.Lock()
	backend.failAll = errors.New("backend down")
	backend.mu.Unlock()

	if err := c.SubmitTotal(context.Background(), 60); err == nil {
		t.Fatal("expected an error")
	}
	snap, _ := c.Snapshot()
	if snap.Players[0].Remaining != 501 {
		t.Errorf("remaining = %d, want untouched 501", snap.Players[0].Remaining)
	}
}

func TestUndoAdoptsResponse(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnap(activeSnapshot(501))
	c := newTestCoordinator(t, backend, nil)

	backend.setSnap(activeSnapshot(441))
	if err := c.Undo(context.Background()); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if backend.undos != 1 {
		t.Errorf("undo calls = %d, want 1", backend.undos)
	}
	snap, _ := c.Snapshot()
	if snap.Players[0].Remaining != 441 {
		t.Errorf("remaining = %d, want 441", snap.Players[0].Remaining)
	}
}

func TestGameFromSnapshot(t *testing.T) {
	snap := activeSnapshot(441)
	snap.Game.CurrentPlayerID = "p2"
	snap.LastTurns = []realtime.TurnRecord{
		{
			ID: "t1", TurnIndex: 1, PlayerID: "p1",
			ScoredTotal: 60, TurnTotal: 60,
			RemainingBefore: 501, RemainingAfter: 441,
		},
	}

	g := GameFromSnapshot(snap)
	if g.Settings.StartingScore != 501 || !g.Settings.DoubleOut {
		t.Errorf("settings = %+v", g.Settings)
	}
	if g.CurrentPlayer != 1 {
		t.Errorf("current player = %d, want 1", g.CurrentPlayer)
	}
	if g.Players[0].Remaining != 441 || g.Players[1].Remaining != 501 {
		t.Errorf("players = %+v", g.Players)
	}
	if len(g.History) != 1 || g.History[0].PlayerIndex != 0 || g.History[0].PrevRemaining != 501 {
		t.Errorf("history = %+v", g.History)
	}
	if g.Phase != engine.InProgress {
		t.Errorf("phase = %q", g.Phase)
	}
}

func TestGameFromCompletedSnapshot(t *testing.T) {
	snap := activeSnapshot(0)
	snap.Game.Status = realtime.GameStatusCompleted
	snap.Game.CurrentPlayerID = ""
	snap.Game.WinnerPlayerID = "p1"
	snap.LastTurns = []realtime.TurnRecord{
		{ID: "t9", TurnIndex: 9, PlayerID: "p1", ScoredTotal: 40, TurnTotal: 40,
			RemainingBefore: 40, RemainingAfter: 0, IsWin: true, FinishDart: "D20"},
	}

	g := GameFromSnapshot(snap)
	if g.Phase != engine.GameOver {
		t.Fatalf("phase = %q, want game over", g.Phase)
	}
	if g.Winner == nil || g.Winner.PlayerIndex != 0 || g.Winner.Turns != 9 {
		t.Errorf("winner = %+v", g.Winner)
	}
}

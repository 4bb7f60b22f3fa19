package engine

import (
	"errors"
	"testing"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  error
	}{
		{"301", Settings{StartingScore: 301, Players: []string{"A"}}, nil},
		{"501", Settings{StartingScore: 501, Players: []string{"A", "B", "C", "D"}}, nil},
		{"bad mode", Settings{StartingScore: 401, Players: []string{"A"}}, ErrInvalidMode},
		{"no players", Settings{StartingScore: 501}, ErrInvalidPlayers},
		{"too many players", Settings{StartingScore: 501, Players: []string{"A", "B", "C", "D", "E"}}, ErrInvalidPlayers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.settings.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGame(t *testing.T) {
	g := New(Settings{StartingScore: 501, DoubleOut: true, Players: []string{"Anna", "Ben"}})

	if g.Phase != InProgress {
		t.Errorf("phase = %q, want in progress", g.Phase)
	}
	if g.CurrentPlayer != 0 {
		t.Errorf("current player = %d, want 0", g.CurrentPlayer)
	}
	if len(g.History) != 0 || g.Winner != nil {
		t.Errorf("fresh game carries state: %+v", g)
	}
	for i, p := range g.Players {
		if p.Remaining != 501 {
			t.Errorf("player %d remaining = %d, want 501", i, p.Remaining)
		}
	}
}

func TestUndoIsNoOpOnFreshGame(t *testing.T) {
	g := New(Settings{StartingScore: 301, Players: []string{"Anna"}})

	undone := Undo(g)
	if len(undone.History) != 0 || undone.Players[0].Remaining != 301 {
		t.Errorf("undo changed a fresh game: %+v", undone)
	}
}

func TestUndoReversesLastTurn(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna", "Ben")

	after1, err := ApplyTotal(g, 60)
	if err != nil {
		t.Fatalf("ApplyTotal: %v", err)
	}
	after2, err := ApplyTotal(after1, 45)
	if err != nil {
		t.Fatalf("ApplyTotal: %v", err)
	}

	undone := Undo(after2)
	if got := undone.Players[1].Remaining; got != 501 {
		t.Errorf("remaining = %d, want 501", got)
	}
	if undone.CurrentPlayer != 1 {
		t.Errorf("current player = %d, want the undone thrower (1)", undone.CurrentPlayer)
	}
	if len(undone.History) != 1 {
		t.Errorf("history length = %d, want 1", len(undone.History))
	}
	// Only one turn comes back per call.
	twice := Undo(undone)
	if len(twice.History) != 0 || twice.Players[0].Remaining != 501 {
		t.Errorf("second undo state: %+v", twice)
	}
}

func TestUndoReopensWonGame(t *testing.T) {
	g := newTestGame(t, 301, true, "Anna")
	g.Players[0].Remaining = 40

	won, err := ApplyDarts(g, []Dart{{Mult: Double, Value: 20}})
	if err != nil {
		t.Fatalf("ApplyDarts: %v", err)
	}
	if won.Phase != GameOver || won.Winner == nil {
		t.Fatalf("expected a finished game, got %+v", won)
	}

	undone := Undo(won)
	if undone.Phase != InProgress {
		t.Errorf("phase = %q, want in progress", undone.Phase)
	}
	if undone.Winner != nil {
		t.Errorf("winner still set: %+v", undone.Winner)
	}
	if undone.Players[0].Remaining != 40 {
		t.Errorf("remaining = %d, want 40", undone.Players[0].Remaining)
	}
	if undone.CurrentPlayer != 0 {
		t.Errorf("current player = %d, want 0", undone.CurrentPlayer)
	}
}

func TestUndoLeavesInputUntouched(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna", "Ben")
	after, err := ApplyTotal(g, 100)
	if err != nil {
		t.Fatalf("ApplyTotal: %v", err)
	}

	_ = Undo(after)
	if after.Players[0].Remaining != 401 || len(after.History) != 1 {
		t.Errorf("input game mutated: %+v", after)
	}
}

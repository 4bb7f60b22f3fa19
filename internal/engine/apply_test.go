package engine

import (
	"errors"
	"testing"
)

func newTestGame(t *testing.T, start int, doubleOut bool, players ...string) Game {
	t.Helper()
	settings := Settings{StartingScore: start, DoubleOut: doubleOut, Players: players}
	if err := settings.Validate(); err != nil {
		t.Fatalf("invalid test settings: %v", err)
	}
	return New(settings)
}

func TestApplyTotalScoresAndRotates(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna", "Ben")

	next, err := ApplyTotal(g, 60)
	if err != nil {
		t.Fatalf("ApplyTotal: %v", err)
	}

	if got := next.Players[0].Remaining; got != 441 {
		t.Errorf("remaining = %d, want 441", got)
	}
	if next.CurrentPlayer != 1 {
		t.Errorf("current player = %d, want 1", next.CurrentPlayer)
	}
	if len(next.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(next.History))
	}

	turn := next.History[0]
	if turn.Number != 1 || turn.PlayerIndex != 0 || turn.PlayerName != "Anna" {
		t.Errorf("turn header = %+v", turn)
	}
	if turn.ScoredPoints != 60 || turn.TurnTotal != 60 || turn.RemainingAfter != 441 {
		t.Errorf("turn scoring = %+v", turn)
	}
	if turn.PrevRemaining != 501 || turn.PrevPlayerIndex != 0 {
		t.Errorf("turn pre-state = %+v", turn)
	}
}

func TestApplyTotalLeavesInputUntouched(t *testing.T) {
	g := newTestGame(t, 301, false, "Anna", "Ben")

	if _, err := ApplyTotal(g, 100); err != nil {
		t.Fatalf("ApplyTotal: %v", err)
	}

	if g.Players[0].Remaining != 301 {
		t.Errorf("input remaining changed to %d", g.Players[0].Remaining)
	}
	if g.CurrentPlayer != 0 || len(g.History) != 0 {
		t.Errorf("input game mutated: %+v", g)
	}
}

func TestApplyTotalRange(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna")

	for _, points := range []int{-1, 181, 500} {
		if _, err := ApplyTotal(g, points); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("ApplyTotal(%d) error = %v, want ErrInvalidScore", points, err)
		}
	}
	if _, err := ApplyTotal(g, 0); err != nil {
		t.Errorf("ApplyTotal(0) error = %v, want nil", err)
	}
	if _, err := ApplyTotal(g, 180); err != nil {
		t.Errorf("ApplyTotal(180) error = %v, want nil", err)
	}
}

func TestApplyTotalBusts(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		doubleOut bool
		points    int
		wantBust  bool
		wantWin   bool
	}{
		{"overshoot", 40, true, 41, true, false},
		{"lands on one with double out", 40, true, 39, true, false},
		{"lands on one without double out", 40, false, 39, false, false},
		{"exact finish with double out is unverifiable", 40, true, 40, true, false},
		{"exact finish without double out wins", 40, false, 40, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, 501, tt.doubleOut, "Anna", "Ben")
			g.Players[0].Remaining = tt.remaining

			next, err := ApplyTotal(g, tt.points)
			if err != nil {
				t.Fatalf("ApplyTotal: %v", err)
			}

			turn := next.History[0]
			if turn.IsBust != tt.wantBust || turn.IsWin != tt.wantWin {
				t.Fatalf("bust=%v win=%v, want bust=%v win=%v",
					turn.IsBust, turn.IsWin, tt.wantBust, tt.wantWin)
			}
			if tt.wantBust {
				if turn.ScoredPoints != 0 {
					t.Errorf("bust scored %d points, want 0", turn.ScoredPoints)
				}
				if turn.TurnTotal != tt.points {
					t.Errorf("bust turn total = %d, want %d", turn.TurnTotal, tt.points)
				}
				if next.Players[0].Remaining != tt.remaining {
					t.Errorf("bust changed remaining to %d", next.Players[0].Remaining)
				}
			}
		})
	}
}

func TestApplyTotalWinClosesGame(t *testing.T) {
	g := newTestGame(t, 501, false, "Anna")

	for _, points := range []int{140, 140, 140} {
		var err error
		g, err = ApplyTotal(g, points)
		if err != nil {
			t.Fatalf("ApplyTotal(%d): %v", points, err)
		}
	}
	if g.Players[0].Remaining != 81 {
		t.Fatalf("remaining = %d, want 81", g.Players[0].Remaining)
	}

	g, err := ApplyTotal(g, 81)
	if err != nil {
		t.Fatalf("ApplyTotal(81): %v", err)
	}

	if g.Phase != GameOver {
		t.Errorf("phase = %q, want game over", g.Phase)
	}
	if g.Winner == nil {
		t.Fatal("winner not set")
	}
	if g.Winner.PlayerIndex != 0 || g.Winner.PlayerName != "Anna" || g.Winner.Turns != 4 {
		t.Errorf("winner = %+v", g.Winner)
	}
	if g.CurrentPlayer != 0 {
		t.Errorf("current player advanced past the winner: %d", g.CurrentPlayer)
	}

	if _, err := ApplyTotal(g, 20); !errors.Is(err, ErrGameOver) {
		t.Errorf("ApplyTotal after win error = %v, want ErrGameOver", err)
	}
	if _, err := ApplyDarts(g, []Dart{{Mult: Single, Value: 20}}); !errors.Is(err, ErrGameOver) {
		t.Errorf("ApplyDarts after win error = %v, want ErrGameOver", err)
	}
}

func TestApplyDartsValidation(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna")

	if _, err := ApplyDarts(g, nil); !errors.Is(err, ErrNoDarts) {
		t.Errorf("empty darts error = %v, want ErrNoDarts", err)
	}

	four := []Dart{
		{Mult: Single, Value: 1}, {Mult: Single, Value: 1},
		{Mult: Single, Value: 1}, {Mult: Single, Value: 1},
	}
	if _, err := ApplyDarts(g, four); !errors.Is(err, ErrTooManyDarts) {
		t.Errorf("four darts error = %v, want ErrTooManyDarts", err)
	}

	bad := [][]Dart{
		{{Mult: Single, Value: 21}},
		{{Mult: Triple, Value: 0}},
		{{Mult: OuterBull, Value: 50}},
		{{Mult: "X", Value: 5}},
	}
	for _, darts := range bad {
		if _, err := ApplyDarts(g, darts); !errors.Is(err, ErrInvalidDart) {
			t.Errorf("ApplyDarts(%v) error = %v, want ErrInvalidDart", darts, err)
		}
	}
}

func TestApplyDartsScoring(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna", "Ben")
	g.Players[0].Remaining = 170

	next, err := ApplyDarts(g, []Dart{
		{Mult: Triple, Value: 20},
		{Mult: Triple, Value: 20},
		{Mult: Double, Value: 20},
	})
	if err != nil {
		t.Fatalf("ApplyDarts: %v", err)
	}

	if got := next.Players[0].Remaining; got != 10 {
		t.Errorf("remaining = %d, want 10", got)
	}
	turn := next.History[0]
	if turn.ScoredPoints != 160 || turn.TurnTotal != 160 {
		t.Errorf("scored=%d total=%d, want 160/160", turn.ScoredPoints, turn.TurnTotal)
	}
	if len(turn.Darts) != 3 {
		t.Errorf("kept %d darts, want 3", len(turn.Darts))
	}
	if next.CurrentPlayer != 1 {
		t.Errorf("current player = %d, want 1", next.CurrentPlayer)
	}
}

func TestApplyDartsDoubleOutFinish(t *testing.T) {
	tests := []struct {
		name       string
		remaining  int
		darts      []Dart
		wantWin    bool
		wantBust   bool
		wantFinish string
		wantKept   int
	}{
		{
			name:       "double one from two",
			remaining:  2,
			darts:      []Dart{{Mult: Double, Value: 1}},
			wantWin:    true,
			wantFinish: "D1",
			wantKept:   1,
		},
		{
			name:       "bull from fifty",
			remaining:  50,
			darts:      []Dart{{Mult: Bull, Value: 50}},
			wantWin:    true,
			wantFinish: "Bull",
			wantKept:   1,
		},
		{
			name:      "single lands on zero",
			remaining: 20,
			darts:     []Dart{{Mult: Single, Value: 20}},
			wantBust:  true,
			wantKept:  1,
		},
		{
			name:      "outer bull lands on zero",
			remaining: 25,
			darts:     []Dart{{Mult: OuterBull, Value: 25}},
			wantBust:  true,
			wantKept:  1,
		},
		{
			name:      "triple lands on zero",
			remaining: 60,
			darts:     []Dart{{Mult: Triple, Value: 20}},
			wantBust:  true,
			wantKept:  1,
		},
		{
			name:      "mid turn overshoot stops evaluation",
			remaining: 30,
			darts: []Dart{
				{Mult: Triple, Value: 20},
				{Mult: Single, Value: 5},
				{Mult: Single, Value: 5},
			},
			wantBust: true,
			wantKept: 1,
		},
		{
			name:      "mid turn lands on one",
			remaining: 41,
			darts: []Dart{
				{Mult: Double, Value: 20},
				{Mult: Single, Value: 5},
			},
			wantBust: true,
			wantKept: 1,
		},
		{
			name:       "winning dart drops the rest",
			remaining:  40,
			darts:      []Dart{{Mult: Double, Value: 20}, {Mult: Triple, Value: 20}},
			wantWin:    true,
			wantFinish: "D20",
			wantKept:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, 501, true, "Anna", "Ben")
			g.Players[0].Remaining = tt.remaining

			next, err := ApplyDarts(g, tt.darts)
			if err != nil {
				t.Fatalf("ApplyDarts: %v", err)
			}

			turn := next.History[0]
			if turn.IsWin != tt.wantWin || turn.IsBust != tt.wantBust {
				t.Fatalf("win=%v bust=%v, want win=%v bust=%v",
					turn.IsWin, turn.IsBust, tt.wantWin, tt.wantBust)
			}
			if turn.FinishDart != tt.wantFinish {
				t.Errorf("finish dart = %q, want %q", turn.FinishDart, tt.wantFinish)
			}
			if len(turn.Darts) != tt.wantKept {
				t.Errorf("kept %d darts, want %d", len(turn.Darts), tt.wantKept)
			}
			if tt.wantBust && next.Players[0].Remaining != tt.remaining {
				t.Errorf("bust changed remaining to %d", next.Players[0].Remaining)
			}
			if tt.wantWin && next.Players[0].Remaining != 0 {
				t.Errorf("win left remaining at %d", next.Players[0].Remaining)
			}
		})
	}
}

func TestApplyDartsBustKeepsFullTurnTotal(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna")
	g.Players[0].Remaining = 50

	next, err := ApplyDarts(g, []Dart{
		{Mult: Triple, Value: 19},
		{Mult: Single, Value: 19},
		{Mult: Single, Value: 3},
	})
	if err != nil {
		t.Fatalf("ApplyDarts: %v", err)
	}

	turn := next.History[0]
	if !turn.IsBust {
		t.Fatal("expected a bust")
	}
	// The full submitted arithmetic shows on displays even though only the
	// busting dart was kept.
	if turn.TurnTotal != 79 {
		t.Errorf("turn total = %d, want 79", turn.TurnTotal)
	}
	if turn.ScoredPoints != 0 || turn.RemainingAfter != 50 {
		t.Errorf("bust turn = %+v", turn)
	}
}

func TestApplyDartsStraightOutFinishesOnAnything(t *testing.T) {
	g := newTestGame(t, 301, false, "Anna")
	g.Players[0].Remaining = 20

	next, err := ApplyDarts(g, []Dart{{Mult: Single, Value: 20}})
	if err != nil {
		t.Fatalf("ApplyDarts: %v", err)
	}
	turn := next.History[0]
	if !turn.IsWin || turn.FinishDart != "S20" {
		t.Errorf("turn = %+v, want win with S20", turn)
	}
}

func TestTurnNumbersAreSequential(t *testing.T) {
	g := newTestGame(t, 501, true, "Anna", "Ben", "Cara")

	for i := 0; i < 7; i++ {
		var err error
		g, err = ApplyTotal(g, 26)
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
	}

	for i, turn := range g.History {
		if turn.Number != i+1 {
			t.Errorf("history[%d].Number = %d, want %d", i, turn.Number, i+1)
		}
		if want := i % 3; turn.PlayerIndex != want {
			t.Errorf("history[%d].PlayerIndex = %d, want %d", i, turn.PlayerIndex, want)
		}
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	g := newTestGame(t, 301, true, "Anna", "Ben")

	scores := []int{100, 100, 100, 100, 180, 60, 45, 95, 3}
	for _, points := range scores {
		next, err := ApplyTotal(g, points)
		if err != nil {
			t.Fatalf("ApplyTotal(%d): %v", points, err)
		}
		for i, p := range next.Players {
			if p.Remaining < 0 {
				t.Fatalf("player %d remaining went negative: %d", i, p.Remaining)
			}
			if p.Remaining > 301 {
				t.Fatalf("player %d remaining above start: %d", i, p.Remaining)
			}
		}
		g = next
	}
}

package engine

import "errors"

// ErrGameOver is returned when a turn is submitted against a finished game.
var ErrGameOver = errors.New("game is already over")

// ApplyTotal scores a turn entered as a single aggregate total. Because the
// individual darts are unknown, an exact finish under double-out cannot be
// verified and is conservatively treated as a bust; only aggregate entry
// with double-out disabled can win a game.
func ApplyTotal(g Game, points int) (Game, error) {
	if g.Phase == GameOver {
		return Game{}, ErrGameOver
	}
	if points < 0 || points > 180 {
		return Game{}, ErrInvalidScore
	}

	cur := g.Players[g.CurrentPlayer]
	newRemaining := cur.Remaining - points

	var isBust, isWin bool
	switch {
	case newRemaining < 0:
		isBust = true
	case g.Settings.DoubleOut && newRemaining == 1:
		isBust = true
	case newRemaining == 0:
		if g.Settings.DoubleOut {
			// Cannot prove the final dart was a double.
			isBust = true
		} else {
			isWin = true
		}
	}

	turn := Turn{
		Number:          len(g.History) + 1,
		PlayerIndex:     g.CurrentPlayer,
		PlayerName:      cur.Name,
		ScoredPoints:    points,
		TurnTotal:       points,
		RemainingAfter:  newRemaining,
		IsBust:          isBust,
		IsWin:           isWin,
		PrevRemaining:   cur.Remaining,
		PrevPlayerIndex: g.CurrentPlayer,
	}
	if isBust {
		turn.ScoredPoints = 0
		turn.RemainingAfter = cur.Remaining
	}

	return commitTurn(g, turn), nil
}

// ApplyDarts scores a turn entered dart by dart. Darts are evaluated in
// order and evaluation stops at the first bust or the first winning dart;
// any trailing darts are dropped from the stored turn, but the full
// submitted list still determines the turn total shown for a bust. Under
// double-out the winning dart must be a double or the bull, otherwise the
// turn busts even when the arithmetic lands on zero.
func ApplyDarts(g Game, darts []Dart) (Game, error) {
	if g.Phase == GameOver {
		return Game{}, ErrGameOver
	}
	if len(darts) == 0 {
		return Game{}, ErrNoDarts
	}
	if len(darts) > 3 {
		return Game{}, ErrTooManyDarts
	}
	turnTotal := 0
	for _, d := range darts {
		if !d.Valid() {
			return Game{}, ErrInvalidDart
		}
		turnTotal += d.Points()
	}

	cur := g.Players[g.CurrentPlayer]
	remaining := cur.Remaining

	var (
		kept       []Dart
		isBust     bool
		isWin      bool
		finishDart string
	)
	for i, d := range darts {
		remaining -= d.Points()
		kept = darts[:i+1]

		if remaining < 0 {
			isBust = true
			break
		}
		if g.Settings.DoubleOut && remaining == 1 {
			isBust = true
			break
		}
		if remaining == 0 {
			if g.Settings.DoubleOut && !d.FinishesLeg() {
				isBust = true
			} else {
				isWin = true
				finishDart = d.Label()
			}
			break
		}
	}

	turn := Turn{
		Number:          len(g.History) + 1,
		PlayerIndex:     g.CurrentPlayer,
		PlayerName:      cur.Name,
		Darts:           cloneDarts(kept),
		ScoredPoints:    cur.Remaining - remaining,
		TurnTotal:       turnTotal,
		RemainingAfter:  remaining,
		IsBust:          isBust,
		IsWin:           isWin,
		FinishDart:      finishDart,
		PrevRemaining:   cur.Remaining,
		PrevPlayerIndex: g.CurrentPlayer,
	}
	if isBust {
		turn.ScoredPoints = 0
		turn.RemainingAfter = cur.Remaining
	}

	return commitTurn(g, turn), nil
}

// commitTurn writes the turn into a fresh Game value: updates the player's
// remaining, appends the turn, advances the current player unless the turn
// won, and closes the game on a win.
func commitTurn(g Game, turn Turn) Game {
	players := clonePlayers(g.Players)
	players[turn.PlayerIndex].Remaining = turn.RemainingAfter

	next := g
	next.Players = players
	next.History = append(cloneHistory(g.History), turn)

	if turn.IsWin {
		next.Phase = GameOver
		next.Winner = &Winner{
			PlayerIndex: turn.PlayerIndex,
			PlayerName:  turn.PlayerName,
			Turns:       turn.Number,
		}
		return next
	}

	next.CurrentPlayer = (g.CurrentPlayer + 1) % len(g.Players)
	return next
}

func cloneDarts(darts []Dart) []Dart {
	if len(darts) == 0 {
		return nil
	}
	out := make([]Dart, len(darts))
	copy(out, darts)
	return out
}

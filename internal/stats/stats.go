// Package stats derives per-player display metrics from a game's turn
// history. Computation is pure and can run on any Game value, local or
// reconstructed from a snapshot.
package stats

import "github.com/chalkline/dartscore/internal/engine"

// checkoutRange is the highest score finishable in a single three-dart turn.
const checkoutRange = 170

// PlayerStats are the aggregate metrics shown on scoreboards.
type PlayerStats struct {
	PlayerIndex int     `json:"player_index"`
	PlayerName  string  `json:"player_name"`
	Average     float64 `json:"avg_per_3_darts"`
	// FirstNineAverage covers the player's first three turns (nine darts);
	// nil until the player has thrown at least once.
	FirstNineAverage *float64 `json:"first_9_avg,omitempty"`
	Count180         int      `json:"count_180s"`
	Busts            int      `json:"busts_count"`
	// CheckoutPercent is nil when double-out is disabled.
	CheckoutPercent *float64 `json:"checkout_percentage,omitempty"`
}

// Compute builds stats for every player from the turn history. Bust turns
// score zero but still count as turns taken, so they pull averages down.
func Compute(g engine.Game) []PlayerStats {
	out := make([]PlayerStats, len(g.Players))
	turnsByPlayer := make([][]engine.Turn, len(g.Players))

	for i, p := range g.Players {
		out[i] = PlayerStats{PlayerIndex: i, PlayerName: p.Name}
	}
	for _, turn := range g.History {
		turnsByPlayer[turn.PlayerIndex] = append(turnsByPlayer[turn.PlayerIndex], turn)
	}

	for i := range g.Players {
		turns := turnsByPlayer[i]
		if len(turns) == 0 {
			continue
		}

		total := 0
		for _, t := range turns {
			total += t.ScoredPoints
		}
		out[i].Average = float64(total) / float64(len(turns))

		firstThree := turns
		if len(firstThree) > 3 {
			firstThree = firstThree[:3]
		}
		firstNineTotal := 0
		for _, t := range firstThree {
			firstNineTotal += t.ScoredPoints
		}
		avg := float64(firstNineTotal) / float64(len(firstThree))
		out[i].FirstNineAverage = &avg

		for _, t := range turns {
			if t.TurnTotal == 180 && !t.IsBust {
				out[i].Count180++
			}
			if t.IsBust {
				out[i].Busts++
			}
		}

		if g.Settings.DoubleOut {
			pct := checkoutPercent(turns)
			out[i].CheckoutPercent = &pct
		}
	}

	return out
}

// checkoutPercent uses the same heuristic as the scoreboard has always
// shown: an attempt is any confirmed win, or any turn started from a
// finishable score (2-170) that did not land exactly on zero. The boundary
// is deliberately loose; keep it stable rather than precise.
func checkoutPercent(turns []engine.Turn) float64 {
	attempts, successes := 0, 0
	for _, t := range turns {
		if t.IsWin {
			attempts++
			successes++
			continue
		}
		finishable := t.PrevRemaining > 1 && t.PrevRemaining <= checkoutRange
		if finishable && t.PrevRemaining-t.ScoredPoints != 0 {
			attempts++
		}
	}
	if attempts == 0 {
		return 0
	}
	return float64(successes) / float64(attempts) * 100
}

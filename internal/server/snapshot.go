package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
	"github.com/chalkline/dartscore/internal/stats"
)

// lastTurnsWindow caps the recent-turns block in a snapshot. The full
// history stays queryable through the paginated turns endpoint.
const lastTurnsWindow = 10

// buildSnapshot assembles the authoritative GameSnapshot for a game:
// header, seats with computed statlines, and the recent-turns window. Every
// mutation handler publishes the result wholesale; clients replace rather
// than merge.
func buildSnapshot(ctx context.Context, store Store, game GameRow) (realtime.GameSnapshot, error) {
	players, err := store.PlayersByGame(ctx, game.ID)
	if err != nil {
		return realtime.GameSnapshot{}, fmt.Errorf("loading players: %w", err)
	}
	turns, err := store.TurnsByGame(ctx, game.ID)
	if err != nil {
		return realtime.GameSnapshot{}, fmt.Errorf("loading turns: %w", err)
	}

	statlines := stats.Compute(engineGame(game, players, turns))

	snap := realtime.GameSnapshot{
		Game: realtime.GameInfo{
			ID:              game.ID,
			Mode:            game.Mode,
			DoubleOut:       game.DoubleOut,
			Status:          game.Status,
			CurrentPlayerID: game.CurrentPlayerID,
			RoomID:          game.RoomID,
			StartedAt:       game.StartedAt,
			FinishedAt:      game.FinishedAt,
			WinnerPlayerID:  game.WinnerPlayerID,
		},
	}

	for i, p := range players {
		state := realtime.PlayerState{
			ID:          p.ID,
			Name:        p.Name,
			DisplayName: p.DisplayName,
			UserID:      p.UserID,
			Remaining:   p.Remaining,
			SeatOrder:   p.SeatOrder,
		}
		if i < len(statlines) {
			s := statlines[i]
			state.Stats = &realtime.Statline{
				AvgPer3Darts:    s.Average,
				First9Avg:       s.FirstNineAverage,
				Count180s:       s.Count180,
				CheckoutPercent: s.CheckoutPercent,
				BustsCount:      s.Busts,
			}
		}
		snap.Players = append(snap.Players, state)
	}

	window := turns
	if len(window) > lastTurnsWindow {
		window = window[len(window)-lastTurnsWindow:]
	}
	for _, t := range window {
		snap.LastTurns = append(snap.LastTurns, turnRecord(t))
	}

	return snap, nil
}

func turnRecord(t TurnRow) realtime.TurnRecord {
	rec := realtime.TurnRecord{
		ID:              t.ID,
		TurnIndex:       t.TurnIndex,
		PlayerID:        t.PlayerID,
		ScoredTotal:     t.ScoredTotal,
		TurnTotal:       t.TurnTotal,
		IsBust:          t.IsBust,
		IsWin:           t.IsWin,
		RemainingBefore: t.RemainingBefore,
		RemainingAfter:  t.RemainingAfter,
		FinishDart:      t.FinishDart,
	}
	if t.DartsJSON != "" {
		// Stored by us; a decode failure just means no dart detail.
		_ = json.Unmarshal([]byte(t.DartsJSON), &rec.Darts)
	}
	return rec
}

// engineGame reconstructs the pure scoring state from storage rows so the
// rules engine and the stats calculator can run on it.
func engineGame(game GameRow, players []PlayerRow, turns []TurnRow) engine.Game {
	seatByID := make(map[string]int, len(players))
	names := make([]string, len(players))
	for i, p := range players {
		seatByID[p.ID] = i
		names[i] = p.Name
	}

	g := engine.Game{
		Settings: engine.Settings{
			StartingScore: game.Mode,
			DoubleOut:     game.DoubleOut,
			Players:       names,
		},
		Players: make([]engine.Player, len(players)),
		Phase:   engine.InProgress,
	}
	for i, p := range players {
		g.Players[i] = engine.Player{Name: p.Name, Remaining: p.Remaining}
	}
	if idx, ok := seatByID[game.CurrentPlayerID]; ok {
		g.CurrentPlayer = idx
	}

	for _, t := range turns {
		seat := seatByID[t.PlayerID]
		turn := engine.Turn{
			Number:          t.TurnIndex,
			PlayerIndex:     seat,
			PlayerName:      g.Settings.Players[seat],
			ScoredPoints:    t.ScoredTotal,
			TurnTotal:       t.TurnTotal,
			RemainingAfter:  t.RemainingAfter,
			IsBust:          t.IsBust,
			IsWin:           t.IsWin,
			FinishDart:      t.FinishDart,
			PrevRemaining:   t.RemainingBefore,
			PrevPlayerIndex: seat,
		}
		if t.DartsJSON != "" {
			_ = json.Unmarshal([]byte(t.DartsJSON), &turn.Darts)
		}
		g.History = append(g.History, turn)
	}

	if game.Status == realtime.GameStatusCompleted {
		g.Phase = engine.GameOver
		if idx, ok := seatByID[game.WinnerPlayerID]; ok {
			winTurn := len(g.History)
			if winTurn > 0 {
				winTurn = g.History[len(g.History)-1].Number
			}
			g.Winner = &engine.Winner{
				PlayerIndex: idx,
				PlayerName:  g.Settings.Players[idx],
				Turns:       winTurn,
			}
		}
	}

	return g
}

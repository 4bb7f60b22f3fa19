package realtime

import "github.com/chalkline/dartscore/internal/engine"

// Game status values used on the wire.
const (
	GameStatusPending   = "pending"
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
)

// GameSnapshot is the authoritative projection of full game state that the
// backend distributes to every subscribed device. It supersedes any locally
// computed state in full; receivers never merge it field by field.
type GameSnapshot struct {
	Game      GameInfo      `json:"game"`
	Players   []PlayerState `json:"players"`
	LastTurns []TurnRecord  `json:"last_turns"`
}

// GameInfo is the game header: identifiers, settings, lifecycle status.
type GameInfo struct {
	ID              string `json:"id"`
	Mode            int    `json:"mode"`
	DoubleOut       bool   `json:"double_out"`
	Status          string `json:"status"`
	CurrentPlayerID string `json:"current_player_id,omitempty"`
	RoomID          string `json:"room_id,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
	FinishedAt      string `json:"finished_at,omitempty"`
	WinnerPlayerID  string `json:"winner_player_id,omitempty"`
}

// PlayerState is one seat in the snapshot. Field casing follows the
// established wire contract, mixed as it is.
type PlayerState struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	UserID      *string   `json:"userId,omitempty"`
	Remaining   int       `json:"remaining"`
	SeatOrder   int       `json:"seat_order"`
	Stats       *Statline `json:"stats,omitempty"`
}

// Statline is the per-player aggregate block embedded in snapshots.
type Statline struct {
	AvgPer3Darts    float64  `json:"avg_per_3_darts"`
	First9Avg       *float64 `json:"first_9_avg,omitempty"`
	Count180s       int      `json:"count_180s"`
	CheckoutPercent *float64 `json:"checkout_percentage,omitempty"`
	BustsCount      int      `json:"busts_count"`
}

// TurnRecord is one entry in the snapshot's recent-turns window.
type TurnRecord struct {
	ID              string        `json:"id"`
	TurnIndex       int           `json:"turn_index"`
	PlayerID        string        `json:"player_id"`
	ScoredTotal     int           `json:"scored_total"`
	TurnTotal       int           `json:"turn_total"`
	IsBust          bool          `json:"is_bust"`
	IsWin           bool          `json:"is_win"`
	RemainingBefore int           `json:"remaining_before"`
	RemainingAfter  int           `json:"remaining_after"`
	Darts           []engine.Dart `json:"darts,omitempty"`
	FinishDart      string        `json:"finish_dart,omitempty"`
}

// CurrentPlayerIndex resolves the current player id to a seat index, -1 if
// the game has no current player (completed or unknown id).
func (s GameSnapshot) CurrentPlayerIndex() int {
	for i, p := range s.Players {
		if p.ID == s.Game.CurrentPlayerID {
			return i
		}
	}
	return -1
}

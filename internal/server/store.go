package server

import (
	"context"
	"errors"
)

// ErrNotFound is returned for unknown rooms, games, players and turns.
var ErrNotFound = errors.New("not found")

// Room is a scoring room: a join code for displays and a hashed admin token
// that authorizes mutations by the scorer device.
type Room struct {
	ID        string
	Code      string
	TokenHash string
	Status    string
	CreatedAt string
}

// GameRow is a game as stored, settings plus lifecycle columns.
type GameRow struct {
	ID              string
	RoomID          string
	Mode            int
	DoubleOut       bool
	Status          string
	CurrentPlayerID string
	WinnerPlayerID  string
	StartedAt       string
	FinishedAt      string
}

// PlayerRow is one seat in a game.
type PlayerRow struct {
	ID          string
	GameID      string
	Name        string
	DisplayName string
	UserID      *string
	Remaining   int
	SeatOrder   int
}

// TurnRow is one recorded turn. DartsJSON holds the per-dart detail as a
// JSON array, empty for aggregate-entry turns.
type TurnRow struct {
	ID              string
	GameID          string
	PlayerID        string
	TurnIndex       int
	ScoredTotal     int
	TurnTotal       int
	IsBust          bool
	IsWin           bool
	RemainingBefore int
	RemainingAfter  int
	DartsJSON       string
	FinishDart      string
}

// NewPlayer is the input for seating a player when a game is created.
type NewPlayer struct {
	Name        string
	DisplayName string
	UserID      *string
}

// Store is the persistence boundary for rooms, games, players and turns.
// Turn recording and undo are transactional: the turn row, the player's
// remaining and the game's lifecycle columns move together or not at all.
type Store interface {
	CreateRoom(ctx context.Context, code, tokenHash string) (Room, error)
	RoomByCode(ctx context.Context, code string) (Room, error)
	RoomByID(ctx context.Context, id string) (Room, error)

	// CreateGame creates a game with its seated players in one transaction
	// and marks it active with the first seat up.
	CreateGame(ctx context.Context, roomID string, mode int, doubleOut bool, players []NewPlayer) (GameRow, []PlayerRow, error)
	GameByID(ctx context.Context, id string) (GameRow, error)
	// CurrentGameByRoom returns the most recently started game in a room.
	CurrentGameByRoom(ctx context.Context, roomID string) (GameRow, error)

	// AddPlayer seats a player at the given seat with the given remaining.
	AddPlayer(ctx context.Context, gameID string, p NewPlayer, remaining, seat int) (PlayerRow, error)
	PlayersByGame(ctx context.Context, gameID string) ([]PlayerRow, error)
	PlayerByID(ctx context.Context, id string) (PlayerRow, error)
	UpdatePlayerRemaining(ctx context.Context, playerID string, remaining int) error

	TurnsByGame(ctx context.Context, gameID string) ([]TurnRow, error)
	TurnsPage(ctx context.Context, gameID string, limit, offset int) ([]TurnRow, error)

	// RecordTurn appends a turn, applies the player's new remaining, moves
	// the current player, and on a finishing turn completes the game.
	RecordTurn(ctx context.Context, rec TurnRow, nextPlayerID string, finished bool) (TurnRow, error)
	// UndoLastTurn removes the newest turn, restores the thrower's
	// pre-turn remaining, hands the turn back to them, and reopens the
	// game if it was completed. Returns the removed turn.
	UndoLastTurn(ctx context.Context, gameID string) (TurnRow, error)
}

// Package engine implements the x01 turn-scoring state machine. All
// operations are pure: they take a Game value and return a new one, leaving
// the input untouched, so callers can treat games as immutable values and
// replace them wholesale.
package engine

import "errors"

var (
	ErrInvalidScore   = errors.New("score must be between 0 and 180")
	ErrNoDarts        = errors.New("a turn needs at least one dart")
	ErrTooManyDarts   = errors.New("a turn has at most three darts")
	ErrInvalidDart    = errors.New("invalid dart")
	ErrInvalidPlayers = errors.New("a game needs between 1 and 4 players")
	ErrInvalidMode    = errors.New("starting score must be 301 or 501")
)

// Phase is the lifecycle state of a game.
type Phase string

const (
	InProgress Phase = "in-progress"
	GameOver   Phase = "game-over"
)

// Settings are fixed once a game starts.
type Settings struct {
	StartingScore int
	DoubleOut     bool
	Players       []string
}

// Validate checks the settings against the 301/501, 1-4 player rules.
func (s Settings) Validate() error {
	if s.StartingScore != 301 && s.StartingScore != 501 {
		return ErrInvalidMode
	}
	if len(s.Players) < 1 || len(s.Players) > 4 {
		return ErrInvalidPlayers
	}
	return nil
}

// Player is one participant's countdown state.
type Player struct {
	Name      string
	Remaining int
}

// Turn records one completed turn, including the pre-turn state needed to
// reverse it.
type Turn struct {
	Number      int
	PlayerIndex int
	PlayerName  string

	// Darts holds the throws that were actually evaluated; on a bust or a
	// finish any trailing submitted darts are dropped. Empty for turns
	// entered as an aggregate total.
	Darts []Dart

	// ScoredPoints is what the turn subtracted from the player's remaining:
	// zero on a bust. TurnTotal is the arithmetic total of everything the
	// player submitted, busts included, and is what score displays show.
	ScoredPoints   int
	TurnTotal      int
	RemainingAfter int

	IsBust     bool
	IsWin      bool
	FinishDart string

	PrevRemaining   int
	PrevPlayerIndex int
}

// Winner identifies who closed out the game and in how many turns.
type Winner struct {
	PlayerIndex int
	PlayerName  string
	Turns       int
}

// Game is the full scoring state. Exactly one player is current while the
// game is in progress; Winner is set if and only if the phase is GameOver.
type Game struct {
	Settings      Settings
	Players       []Player
	CurrentPlayer int
	History       []Turn
	Phase         Phase
	Winner        *Winner
}

// New starts a game: every player at the starting score, first player up,
// empty history.
func New(settings Settings) Game {
	players := make([]Player, len(settings.Players))
	for i, name := range settings.Players {
		players[i] = Player{Name: name, Remaining: settings.StartingScore}
	}
	return Game{
		Settings: settings,
		Players:  players,
		Phase:    InProgress,
	}
}

// Undo reverses the most recent turn. It restores the affected player's
// remaining and the current-player index from the turn's pre-turn snapshot
// and forces the phase back to in-progress, clearing any winner — undoing a
// winning turn reopens the game. With no history it returns the game
// unchanged. Only one turn is reversed per call.
func Undo(g Game) Game {
	if len(g.History) == 0 {
		return g
	}
	last := g.History[len(g.History)-1]

	players := clonePlayers(g.Players)
	players[last.PlayerIndex].Remaining = last.PrevRemaining

	next := g
	next.Players = players
	next.CurrentPlayer = last.PrevPlayerIndex
	next.History = cloneHistory(g.History[:len(g.History)-1])
	next.Phase = InProgress
	next.Winner = nil
	return next
}

func clonePlayers(players []Player) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	return out
}

func cloneHistory(history []Turn) []Turn {
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

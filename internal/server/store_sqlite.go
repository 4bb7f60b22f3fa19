package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore implements Store on a libSQL/SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const sqliteNow = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

func (s *SQLiteStore) CreateRoom(ctx context.Context, code, tokenHash string) (Room, error) {
	var r Room
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rooms (code, admin_token_hash)
		VALUES (?, ?)
		RETURNING id, code, admin_token_hash, status, created_at
	`, code, tokenHash).Scan(&r.ID, &r.Code, &r.TokenHash, &r.Status, &r.CreatedAt)
	return r, err
}

func (s *SQLiteStore) RoomByCode(ctx context.Context, code string) (Room, error) {
	return s.room(ctx, "code", code)
}

func (s *SQLiteStore) RoomByID(ctx context.Context, id string) (Room, error) {
	return s.room(ctx, "id", id)
}

func (s *SQLiteStore) room(ctx context.Context, column, value string) (Room, error) {
	var r Room
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, admin_token_hash, status, created_at
		FROM rooms WHERE `+column+` = ?
	`, value).Scan(&r.ID, &r.Code, &r.TokenHash, &r.Status, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) CreateGame(ctx context.Context, roomID string, mode int, doubleOut bool, players []NewPlayer) (GameRow, []PlayerRow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GameRow{}, nil, err
	}
	defer tx.Rollback()

	var g GameRow
	err = tx.QueryRowContext(ctx, `
		INSERT INTO games (room_id, mode, double_out, status, started_at)
		VALUES (?, ?, ?, 'active', `+sqliteNow+`)
		RETURNING id, room_id, mode, double_out, status, started_at
	`, roomID, mode, boolInt(doubleOut)).Scan(
		&g.ID, &g.RoomID, &g.Mode, &g.DoubleOut, &g.Status, &g.StartedAt)
	if err != nil {
		return GameRow{}, nil, fmt.Errorf("inserting game: %w", err)
	}

	seated := make([]PlayerRow, 0, len(players))
	for seat, p := range players {
		var row PlayerRow
		err = tx.QueryRowContext(ctx, `
			INSERT INTO players (game_id, name, display_name, user_id, remaining, seat_order)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id, game_id, name, display_name, user_id, remaining, seat_order
		`, g.ID, p.Name, p.DisplayName, p.UserID, mode, seat).Scan(
			&row.ID, &row.GameID, &row.Name, &row.DisplayName, &row.UserID, &row.Remaining, &row.SeatOrder)
		if err != nil {
			return GameRow{}, nil, fmt.Errorf("seating player %q: %w", p.Name, err)
		}
		seated = append(seated, row)
	}

	g.CurrentPlayerID = seated[0].ID
	if _, err := tx.ExecContext(ctx, `
		UPDATE games SET current_player_id = ? WHERE id = ?
	`, g.CurrentPlayerID, g.ID); err != nil {
		return GameRow{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return GameRow{}, nil, err
	}
	return g, seated, nil
}

func (s *SQLiteStore) GameByID(ctx context.Context, id string) (GameRow, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, `
		SELECT id, room_id, mode, double_out, status,
		       current_player_id, winner_player_id, started_at, finished_at
		FROM games WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) CurrentGameByRoom(ctx context.Context, roomID string) (GameRow, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, `
		SELECT id, room_id, mode, double_out, status,
		       current_player_id, winner_player_id, started_at, finished_at
		FROM games WHERE room_id = ?
		ORDER BY started_at DESC LIMIT 1
	`, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (GameRow, error) {
	var (
		g          GameRow
		doubleOut  int
		currentID  sql.NullString
		winnerID   sql.NullString
		finishedAt sql.NullString
	)
	err := row.Scan(&g.ID, &g.RoomID, &g.Mode, &doubleOut, &g.Status,
		&currentID, &winnerID, &g.StartedAt, &finishedAt)
	if err != nil {
		return g, err
	}
	g.DoubleOut = doubleOut != 0
	g.CurrentPlayerID = currentID.String
	g.WinnerPlayerID = winnerID.String
	g.FinishedAt = finishedAt.String
	return g, nil
}

func (s *SQLiteStore) AddPlayer(ctx context.Context, gameID string, p NewPlayer, remaining, seat int) (PlayerRow, error) {
	var row PlayerRow
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (game_id, name, display_name, user_id, remaining, seat_order)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, game_id, name, display_name, user_id, remaining, seat_order
	`, gameID, p.Name, p.DisplayName, p.UserID, remaining, seat).Scan(
		&row.ID, &row.GameID, &row.Name, &row.DisplayName, &row.UserID, &row.Remaining, &row.SeatOrder)
	return row, err
}

func (s *SQLiteStore) PlayersByGame(ctx context.Context, gameID string) ([]PlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, display_name, user_id, remaining, seat_order
		FROM players WHERE game_id = ? ORDER BY seat_order
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []PlayerRow
	for rows.Next() {
		var p PlayerRow
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.DisplayName, &p.UserID, &p.Remaining, &p.SeatOrder); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) PlayerByID(ctx context.Context, id string) (PlayerRow, error) {
	var p PlayerRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, name, display_name, user_id, remaining, seat_order
		FROM players WHERE id = ?
	`, id).Scan(&p.ID, &p.GameID, &p.Name, &p.DisplayName, &p.UserID, &p.Remaining, &p.SeatOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) UpdatePlayerRemaining(ctx context.Context, playerID string, remaining int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET remaining = ? WHERE id = ?
	`, remaining, playerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) TurnsByGame(ctx context.Context, gameID string) ([]TurnRow, error) {
	return s.turns(ctx, `
		SELECT id, game_id, player_id, turn_index, scored_total, turn_total,
		       is_bust, is_win, remaining_before, remaining_after, darts, finish_dart
		FROM turns WHERE game_id = ? ORDER BY turn_index
	`, gameID)
}

func (s *SQLiteStore) TurnsPage(ctx context.Context, gameID string, limit, offset int) ([]TurnRow, error) {
	return s.turns(ctx, `
		SELECT id, game_id, player_id, turn_index, scored_total, turn_total,
		       is_bust, is_win, remaining_before, remaining_after, darts, finish_dart
		FROM turns WHERE game_id = ? ORDER BY turn_index
		LIMIT ? OFFSET ?
	`, gameID, limit, offset)
}

func (s *SQLiteStore) turns(ctx context.Context, query string, args ...any) ([]TurnRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnRow
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func scanTurn(row rowScanner) (TurnRow, error) {
	var (
		t             TurnRow
		isBust, isWin int
		darts, finish sql.NullString
	)
	err := row.Scan(&t.ID, &t.GameID, &t.PlayerID, &t.TurnIndex, &t.ScoredTotal, &t.TurnTotal,
		&isBust, &isWin, &t.RemainingBefore, &t.RemainingAfter, &darts, &finish)
	if err != nil {
		return t, err
	}
	t.IsBust = isBust != 0
	t.IsWin = isWin != 0
	t.DartsJSON = darts.String
	t.FinishDart = finish.String
	return t, nil
}

func (s *SQLiteStore) RecordTurn(ctx context.Context, rec TurnRow, nextPlayerID string, finished bool) (TurnRow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TurnRow{}, err
	}
	defer tx.Rollback()

	var darts any
	if rec.DartsJSON != "" {
		darts = rec.DartsJSON
	}
	var finish any
	if rec.FinishDart != "" {
		finish = rec.FinishDart
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO turns (game_id, player_id, turn_index, scored_total, turn_total,
		                   is_bust, is_win, remaining_before, remaining_after, darts, finish_dart)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.GameID, rec.PlayerID, rec.TurnIndex, rec.ScoredTotal, rec.TurnTotal,
		boolInt(rec.IsBust), boolInt(rec.IsWin), rec.RemainingBefore, rec.RemainingAfter,
		darts, finish).Scan(&rec.ID)
	if err != nil {
		return TurnRow{}, fmt.Errorf("inserting turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET remaining = ? WHERE id = ?
	`, rec.RemainingAfter, rec.PlayerID); err != nil {
		return TurnRow{}, err
	}

	if finished {
		_, err = tx.ExecContext(ctx, `
			UPDATE games
			SET status = 'completed', current_player_id = NULL,
			    winner_player_id = ?, finished_at = `+sqliteNow+`
			WHERE id = ?
		`, rec.PlayerID, rec.GameID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE games SET current_player_id = ? WHERE id = ?
		`, nextPlayerID, rec.GameID)
	}
	if err != nil {
		return TurnRow{}, err
	}

	if err := tx.Commit(); err != nil {
		return TurnRow{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) UndoLastTurn(ctx context.Context, gameID string) (TurnRow, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TurnRow{}, err
	}
	defer tx.Rollback()

	last, err := scanTurn(tx.QueryRowContext(ctx, `
		SELECT id, game_id, player_id, turn_index, scored_total, turn_total,
		       is_bust, is_win, remaining_before, remaining_after, darts, finish_dart
		FROM turns WHERE game_id = ?
		ORDER BY turn_index DESC LIMIT 1
	`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return TurnRow{}, ErrNotFound
	}
	if err != nil {
		return TurnRow{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE id = ?`, last.ID); err != nil {
		return TurnRow{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET remaining = ? WHERE id = ?
	`, last.RemainingBefore, last.PlayerID); err != nil {
		return TurnRow{}, err
	}
	// The undone turn's thrower is back up, and a completed game reopens.
	if _, err := tx.ExecContext(ctx, `
		UPDATE games
		SET status = 'active', current_player_id = ?,
		    winner_player_id = NULL, finished_at = NULL
		WHERE id = ?
	`, last.PlayerID, gameID); err != nil {
		return TurnRow{}, err
	}

	if err := tx.Commit(); err != nil {
		return TurnRow{}, err
	}
	return last, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/chalkline/dartscore/internal/realtime"
)

const wsWriteTimeout = 5 * time.Second

// handleGameChannel upgrades to the per-game websocket channel. The
// subscriber gets a full GAME_SNAPSHOT immediately, then every envelope the
// broker publishes for the game. The channel is push-only; inbound frames
// are drained and ignored.
func handleGameChannel(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		game, err := store.GameByID(r.Context(), gameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "game_id", gameID, "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())

		ch := broker.Subscribe(gameID)
		defer broker.Unsubscribe(gameID, ch)

		snap, err := buildSnapshot(r.Context(), store, game)
		if err != nil {
			logger.Error("building initial snapshot", "game_id", gameID, "error", err)
			return
		}
		env, err := realtime.NewSnapshotEvent(snap)
		if err != nil {
			return
		}
		initial, err := json.Marshal(env)
		if err != nil {
			return
		}
		if err := writeWithTimeout(ctx, conn, initial); err != nil {
			logger.Debug("initial snapshot write failed", "game_id", gameID, "error", err)
			return
		}

		logger.Info("channel subscriber attached", "game_id", gameID)
		for {
			select {
			case <-ctx.Done():
				logger.Debug("channel subscriber detached", "game_id", gameID)
				return
			case data := <-ch:
				if err := writeWithTimeout(ctx, conn, data); err != nil {
					logger.Debug("channel write failed", "game_id", gameID, "error", err)
					return
				}
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

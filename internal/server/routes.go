package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store Store) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Dartscore API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	// One logical channel per game.
	r.Get("/ws/games/{gameID}", handleGameChannel(logger, store, broker))

	r.Route("/api", func(r chi.Router) {
		// Rooms: creation hands out the scorer's admin token once.
		r.Post("/rooms", handleCreateRoom(logger, store))
		r.Get("/rooms/{code}", handleRoomLookup(store))
		r.Post("/rooms/{code}/games", handleCreateGame(logger, store, broker))
		r.Get("/rooms/{code}/games/current", handleCurrentGame(store))

		// Games: reads are open, mutations need the room's admin token.
		r.Get("/games/{gameID}", handleGameSnapshot(store))
		r.Get("/games/{gameID}/players", handleListPlayers(store))
		r.Post("/games/{gameID}/players", handleAddPlayer(logger, store, broker))
		r.Get("/games/{gameID}/turns", handleListTurns(store))
		r.Post("/games/{gameID}/turns", handleSubmitTurn(logger, store, broker))
		r.Delete("/games/{gameID}/turns/last", handleUndoTurn(logger, store, broker))

		r.Patch("/players/{playerID}", handleUpdatePlayerRemaining(logger, store, broker))
	})
}

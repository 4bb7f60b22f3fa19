package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/chalkline/dartscore/internal/realtime"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Dartscore API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for multi-device darts scoring.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/games/{gameID}
	getChannel, _ := r.NewOperationContext(http.MethodGet, "/ws/games/{gameID}")
	getChannel.SetSummary("Game event channel")
	getChannel.SetDescription("Upgrades to a WebSocket pushing {type, payload} envelopes; the first message is a full GAME_SNAPSHOT.")
	getChannel.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	getChannel.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getChannel)

	// POST /api/rooms
	postRoom, _ := r.NewOperationContext(http.MethodPost, "/api/rooms")
	postRoom.SetSummary("Create room")
	postRoom.SetDescription("Creates a scoring room. The admin token in the response is shown exactly once.")
	postRoom.AddRespStructure(RoomCreatedResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	_ = r.AddOperation(postRoom)

	// GET /api/rooms/{code}
	getRoom, _ := r.NewOperationContext(http.MethodGet, "/api/rooms/{code}")
	getRoom.SetSummary("Look up room")
	getRoom.SetDescription("Looks up a room by its join code. No credential required.")
	getRoom.AddRespStructure(RoomResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRoom)

	// POST /api/rooms/{code}/games
	postGame, _ := r.NewOperationContext(http.MethodPost, "/api/rooms/{code}/games")
	postGame.SetSummary("Create game")
	postGame.SetDescription("Starts a 301/501 game with seated players. Requires the room's Bearer admin token.")
	postGame.AddReqStructure(CreateGameRequest{})
	postGame.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postGame)

	// GET /api/rooms/{code}/games/current
	getCurrent, _ := r.NewOperationContext(http.MethodGet, "/api/rooms/{code}/games/current")
	getCurrent.SetSummary("Current game in room")
	getCurrent.SetDescription("Returns the snapshot of the room's most recently started game.")
	getCurrent.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getCurrent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getCurrent)

	// GET /api/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}")
	getGame.SetSummary("Game snapshot")
	getGame.SetDescription("Returns the authoritative snapshot: header, seats with stats, recent turns.")
	getGame.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGame)

	// GET /api/games/{gameID}/players
	getPlayers, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/players")
	getPlayers.SetSummary("List players")
	getPlayers.AddRespStructure([]realtime.PlayerState{}, openapi.WithHTTPStatus(http.StatusOK))
	getPlayers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getPlayers)

	// POST /api/games/{gameID}/players
	postPlayer, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/players")
	postPlayer.SetSummary("Add player")
	postPlayer.SetDescription("Seats a player before scoring starts. Requires the room's Bearer admin token.")
	postPlayer.AddReqStructure(AddPlayerRequest{})
	postPlayer.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postPlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPlayer)

	// GET /api/games/{gameID}/turns
	getTurns, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/turns")
	getTurns.SetSummary("List turns")
	getTurns.SetDescription("Paginated turn history, oldest first. Supports limit and offset query parameters.")
	getTurns.AddRespStructure([]realtime.TurnRecord{}, openapi.WithHTTPStatus(http.StatusOK))
	getTurns.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTurns)

	// POST /api/games/{gameID}/turns
	postTurn, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/turns")
	postTurn.SetSummary("Submit turn")
	postTurn.SetDescription("Scores a turn as a total or as darts; bust and double-out rules apply server-side. Requires the room's Bearer admin token.")
	postTurn.AddReqStructure(TurnRequest{})
	postTurn.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postTurn)

	// DELETE /api/games/{gameID}/turns/last
	deleteTurn, _ := r.NewOperationContext(http.MethodDelete, "/api/games/{gameID}/turns/last")
	deleteTurn.SetSummary("Undo last turn")
	deleteTurn.SetDescription("Removes the most recent turn and restores the thrower's score; reopens a finished game. Requires the room's Bearer admin token.")
	deleteTurn.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	deleteTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	deleteTurn.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteTurn)

	// PATCH /api/players/{playerID}
	patchPlayer, _ := r.NewOperationContext(http.MethodPatch, "/api/players/{playerID}")
	patchPlayer.SetSummary("Correct remaining score")
	patchPlayer.SetDescription("Manually sets a player's remaining score. Requires the room's Bearer admin token.")
	patchPlayer.AddReqStructure(UpdateRemainingRequest{})
	patchPlayer.AddRespStructure(realtime.GameSnapshot{}, openapi.WithHTTPStatus(http.StatusOK))
	patchPlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(patchPlayer)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := newOpenAPISpec()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(spec)
	}
}

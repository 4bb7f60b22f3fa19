package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RoomResponse is the public view of a room. The admin token hash never
// leaves the store.
type RoomResponse struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// RoomCreatedResponse carries the admin token exactly once, at creation.
type RoomCreatedResponse struct {
	Room       RoomResponse `json:"room"`
	AdminToken string       `json:"admin_token"`
}

func handleCreateRoom(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := newAdminToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		hash, err := hashAdminToken(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// The code column is unique; retry a few times in case we collide
		// with an existing room.
		var room Room
		for attempt := 0; attempt < 5; attempt++ {
			code, err := newRoomCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			room, err = store.CreateRoom(r.Context(), code, hash)
			if err == nil {
				break
			}
			if attempt == 4 {
				logger.Error("creating room", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		logger.Info("room created", "room_id", room.ID, "code", room.Code)
		writeJSON(w, http.StatusCreated, RoomCreatedResponse{
			Room:       RoomResponse{ID: room.ID, Code: room.Code, Status: room.Status},
			AdminToken: token,
		})
	}
}

func handleRoomLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		room, err := store.RoomByCode(r.Context(), code)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, RoomResponse{ID: room.ID, Code: room.Code, Status: room.Status})
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

func TestCreateRoomAndGame(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/rooms":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(RoomCreated{
				Room:       Room{ID: "r1", Code: "ABC234", Status: "open"},
				AdminToken: "secret-token",
			})
		case "POST /api/rooms/ABC234/games":
			sawAuth = r.Header.Get("Authorization")
			var body struct {
				Mode      int      `json:"mode"`
				DoubleOut bool     `json:"double_out"`
				Players   []string `json:"players"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding game request: %v", err)
			}
			if body.Mode != 501 || !body.DoubleOut || len(body.Players) != 2 {
				t.Errorf("game request = %+v", body)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(realtime.GameSnapshot{
				Game: realtime.GameInfo{ID: "g1", Mode: 501, Status: realtime.GameStatusActive},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	created, err := c.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if created.Room.Code != "ABC234" || created.AdminToken != "secret-token" {
		t.Fatalf("created = %+v", created)
	}
	c.SetAdminToken(created.AdminToken)

	snap, err := c.CreateGame(context.Background(), created.Room.Code, engine.Settings{
		StartingScore: 501,
		DoubleOut:     true,
		Players:       []string{"Anna", "Ben"},
	})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if snap.Game.ID != "g1" {
		t.Errorf("game id = %q", snap.Game.ID)
	}
	if sawAuth != "Bearer secret-token" {
		t.Errorf("authorization header = %q", sawAuth)
	}
}

func TestReadsCarryNoCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("read request carried credential %q", got)
		}
		json.NewEncoder(w).Encode(realtime.GameSnapshot{Game: realtime.GameInfo{ID: "g1"}})
	}))
	defer srv.Close()

	c := New(srv.URL, WithAdminToken("secret"))
	if _, err := c.Snapshot(context.Background(), "g1"); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, err := c.SnapshotByRoom(context.Background(), "ABC234"); err != nil {
		t.Fatalf("SnapshotByRoom: %v", err)
	}
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rooms/GONE12":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "room not found"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid admin token"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithAdminToken("wrong"))

	_, err := c.RoomByCode(context.Background(), "GONE12")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "room not found" {
		t.Errorf("error = %+v", apiErr)
	}

	// Token failures get rephrased for scorer UIs.
	_, err = c.SubmitTotal(context.Background(), "g1", 60)
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Message != "Invalid admin token. Please check your scorer token." {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestTurnsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/g1/turns" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "10" || q.Get("offset") != "20" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode([]realtime.TurnRecord{{ID: "t1", TurnIndex: 21}})
	}))
	defer srv.Close()

	turns, err := New(srv.URL).Turns(context.Background(), "g1", 10, 20)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 1 || turns[0].TurnIndex != 21 {
		t.Errorf("turns = %+v", turns)
	}
}

func TestChannelURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws/games/g1"},
		{"https://darts.example.com", "wss://darts.example.com/ws/games/g1"},
		{"http://localhost:8080/", "ws://localhost:8080/ws/games/g1"},
	}
	for _, tt := range tests {
		if got := New(tt.base).ChannelURL("g1"); got != tt.want {
			t.Errorf("ChannelURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

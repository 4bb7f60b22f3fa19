// Package client is the Go client for the dartscore backend API. It is the
// device side of the system: scorer apps submit turns through it and
// spectator apps read snapshots through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Room is the public view of a scoring room.
type Room struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// RoomCreated is the one response that carries the admin token in the clear.
type RoomCreated struct {
	Room       Room   `json:"room"`
	AdminToken string `json:"admin_token"`
}

// Client talks to one backend. The admin token, if set, authorizes scorer
// mutations; read endpoints never send it.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAdminToken sets the scorer credential sent on mutating requests.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAdminToken swaps the scorer credential, typically right after
// CreateRoom hands one out.
func (c *Client) SetAdminToken(token string) { c.token = token }

// CreateRoom creates a room and returns it with its one-time admin token.
func (c *Client) CreateRoom(ctx context.Context) (RoomCreated, error) {
	var out RoomCreated
	err := c.do(ctx, http.MethodPost, "/api/rooms", nil, &out, false)
	return out, err
}

// RoomByCode looks up a room by its join code.
func (c *Client) RoomByCode(ctx context.Context, code string) (Room, error) {
	var out Room
	err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(code), nil, &out, false)
	return out, err
}

// CreateGame starts a game in the room and returns its initial snapshot.
func (c *Client) CreateGame(ctx context.Context, code string, settings engine.Settings) (realtime.GameSnapshot, error) {
	body := struct {
		Mode      int      `json:"mode"`
		DoubleOut bool     `json:"double_out"`
		Players   []string `json:"players"`
	}{settings.StartingScore, settings.DoubleOut, settings.Players}

	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(code)+"/games", body, &out, true)
	return out, err
}

// Snapshot fetches the authoritative snapshot of a game.
func (c *Client) Snapshot(ctx context.Context, gameID string) (realtime.GameSnapshot, error) {
	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(gameID), nil, &out, false)
	return out, err
}

// SnapshotByRoom fetches the snapshot of the room's current game.
func (c *Client) SnapshotByRoom(ctx context.Context, code string) (realtime.GameSnapshot, error) {
	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(code)+"/games/current", nil, &out, false)
	return out, err
}

// AddPlayer seats a player; only allowed before the first turn.
func (c *Client) AddPlayer(ctx context.Context, gameID, name string) (realtime.GameSnapshot, error) {
	body := struct {
		Name string `json:"name"`
	}{name}

	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(gameID)+"/players", body, &out, true)
	return out, err
}

// SubmitTotal scores the current player's turn as an aggregate total.
func (c *Client) SubmitTotal(ctx context.Context, gameID string, score int) (realtime.GameSnapshot, error) {
	body := struct {
		Score int `json:"score"`
	}{score}

	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(gameID)+"/turns", body, &out, true)
	return out, err
}

// SubmitDarts scores the current player's turn dart by dart.
func (c *Client) SubmitDarts(ctx context.Context, gameID string, darts []engine.Dart) (realtime.GameSnapshot, error) {
	body := struct {
		Darts []engine.Dart `json:"darts"`
	}{darts}

	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(gameID)+"/turns", body, &out, true)
	return out, err
}

// UndoTurn removes the most recent turn.
func (c *Client) UndoTurn(ctx context.Context, gameID string) (realtime.GameSnapshot, error) {
	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodDelete, "/api/games/"+url.PathEscape(gameID)+"/turns/last", nil, &out, true)
	return out, err
}

// UpdatePlayerRemaining manually corrects a player's remaining score.
func (c *Client) UpdatePlayerRemaining(ctx context.Context, playerID string, remaining int) (realtime.GameSnapshot, error) {
	body := struct {
		Remaining int `json:"remaining"`
	}{remaining}

	var out realtime.GameSnapshot
	err := c.do(ctx, http.MethodPatch, "/api/players/"+url.PathEscape(playerID), body, &out, true)
	return out, err
}

// Players lists a game's seats.
func (c *Client) Players(ctx context.Context, gameID string) ([]realtime.PlayerState, error) {
	var out []realtime.PlayerState
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(gameID)+"/players", nil, &out, false)
	return out, err
}

// Turns pages through a game's turn history, oldest first.
func (c *Client) Turns(ctx context.Context, gameID string, limit, offset int) ([]realtime.TurnRecord, error) {
	path := fmt.Sprintf("/api/games/%s/turns?limit=%d&offset=%d", url.PathEscape(gameID), limit, offset)

	var out []realtime.TurnRecord
	err := c.do(ctx, http.MethodGet, path, nil, &out, false)
	return out, err
}

// ChannelURL is the websocket address of the game's realtime channel,
// derived from the backend base URL.
func (c *Client) ChannelURL(gameID string) string {
	ws := c.baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws/games/" + url.PathEscape(gameID)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	// Credential failures get a friendlier message for scorer UIs.
	if message == "invalid admin token" {
		message = "Invalid admin token. Please check your scorer token."
	}
	c.logger.Debug("backend request failed", "status", resp.StatusCode, "message", message)
	return &APIError{Status: resp.StatusCode, Message: message}
}

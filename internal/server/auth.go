package server

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Room codes avoid lookalike characters so they survive being read off a TV
// screen; admin tokens are plain alphanumerics.
const (
	roomCodeAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	adminTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	roomCodeLength   = 6
	adminTokenLength = 32
)

var (
	errNoToken  = errors.New("admin token required")
	errBadToken = errors.New("invalid admin token")
)

func newRoomCode() (string, error) {
	return randomString(roomCodeLength, roomCodeAlphabet)
}

// newAdminToken generates the capability credential returned once at room
// creation. Only its bcrypt hash is stored.
func newAdminToken() (string, error) {
	return randomString(adminTokenLength, adminTokenAlphabet)
}

func hashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func randomString(n int, alphabet string) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// authorizeScorer checks the request's Bearer token against the room's
// stored token hash. Read endpoints never call this: anyone with the room
// code may watch, only the token holder may score.
func authorizeScorer(r *http.Request, room Room) error {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return errNoToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(room.TokenHash), []byte(token)); err != nil {
		return errBadToken
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusUnauthorized, err.Error())
}

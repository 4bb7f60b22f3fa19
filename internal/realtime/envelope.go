// Package realtime carries the per-game event channel: the wire envelope,
// the canonical GameSnapshot projection, and a websocket client transport
// that keeps a single logical subscription alive across reconnects.
package realtime

import "encoding/json"

// EventType names the events that may appear on a game channel.
type EventType string

const (
	EventGameSnapshot EventType = "GAME_SNAPSHOT"
	EventTurnAdded    EventType = "TURN_ADDED"
	EventTurnUndone   EventType = "TURN_UNDONE"
	EventTurnEdited   EventType = "TURN_EDITED"
)

// Envelope wraps every message on the channel. Only GAME_SNAPSHOT carries a
// payload subscribers are required to consume: the snapshot is complete, so
// the lighter turn events are informational.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseEvent decodes a raw channel message. It reports false for anything
// that is not a well-formed envelope with a known type; callers drop those
// messages rather than treating them as connection errors.
func ParseEvent(data []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, false
	}
	switch env.Type {
	case EventGameSnapshot, EventTurnAdded, EventTurnUndone, EventTurnEdited:
		return env, true
	default:
		return Envelope{}, false
	}
}

// NewSnapshotEvent builds a GAME_SNAPSHOT envelope ready to broadcast.
func NewSnapshotEvent(snap GameSnapshot) (Envelope, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: EventGameSnapshot, Payload: payload}, nil
}

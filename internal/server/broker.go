package server

import (
	"encoding/json"
	"sync"

	"github.com/chalkline/dartscore/internal/realtime"
)

// Broker is an in-process pub/sub for realtime game events, keyed by game
// ID. Each websocket subscriber owns one channel; slow subscribers lose
// events rather than blocking publishers — the next full snapshot makes
// them whole again.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel receiving JSON-encoded envelopes for the game.
func (b *Broker) Subscribe(gameID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan []byte]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the game's subscribers.
func (b *Broker) Unsubscribe(gameID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[gameID], ch)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	b.mu.Unlock()
}

// Publish sends an envelope to all subscribers of the given game.
func (b *Broker) Publish(gameID string, env realtime.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs[gameID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

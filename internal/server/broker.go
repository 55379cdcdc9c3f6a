package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/spotguess/internal/session"
	"github.com/playperu/spotguess/internal/spotguess"
)

// Event is the payload published to session subscribers.
type Event struct {
	Type      string                 `json:"type"`
	Snapshot  *session.Snapshot      `json:"snapshot,omitempty"`
	Result    *spotguess.RoundResult `json:"result,omitempty"`
	Summary   *session.Summary       `json:"summary,omitempty"`
	Remaining *int                   `json:"remaining,omitempty"`
}

const (
	EventPhase    = "phase"
	EventRound    = "round"
	EventComplete = "complete"
	EventTick     = "tick"
)

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given
// session. The channel is closed when the session is dropped.
func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Drop closes every subscriber channel of the session.
func (b *Broker) Drop(sessionID string) {
	b.mu.Lock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels listen to the session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// listener forwards the events of one session to the broker.
type listener struct {
	broker *Broker
	id     string
}

func (l listener) PhaseChanged(s session.Snapshot) {
	s = redact(s)
	l.broker.Publish(l.id, Event{Type: EventPhase, Snapshot: &s})
}

func (l listener) RoundResolved(r spotguess.RoundResult) {
	l.broker.Publish(l.id, Event{Type: EventRound, Result: &r})
}

func (l listener) SessionComplete(s session.Summary) {
	l.broker.Publish(l.id, Event{Type: EventComplete, Summary: &s})
}

func (l listener) TimerTicked(remaining int) {
	l.broker.Publish(l.id, Event{Type: EventTick, Remaining: &remaining})
}

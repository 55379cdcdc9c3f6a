package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/spotguess/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds the live sessions, keyed by a random id.
type Registry struct {
	catalog session.Catalog
	broker  *Broker
	logger  *slog.Logger
	opts    session.Options
	rounds  int
	seconds int

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	s *session.Session

	mu       sync.Mutex
	lastSeen time.Time
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

type RegistryConfig struct {
	Catalog session.Catalog
	Broker  *Broker
	Logger  *slog.Logger
	// Session is the template for every new session. Logger and Listener are
	// set by the registry.
	Session session.Options
	// TotalRounds and RoundSeconds apply when a create request leaves them
	// out.
	TotalRounds  int
	RoundSeconds int
}

func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		catalog:  cfg.Catalog,
		broker:   cfg.Broker,
		logger:   cfg.Logger,
		opts:     cfg.Session,
		rounds:   cfg.TotalRounds,
		seconds:  cfg.RoundSeconds,
		sessions: make(map[string]*entry),
	}
}

// Create starts a new session. A session whose catalog could not be loaded
// is not kept; its snapshot is still returned together with the error.
func (r *Registry) Create(ctx context.Context, totalRounds, roundSeconds int) (*session.Session, error) {
	if totalRounds <= 0 {
		totalRounds = r.rounds
	}
	if roundSeconds <= 0 {
		roundSeconds = r.seconds
	}

	id := uuid.NewString()
	opts := r.opts
	opts.Logger = r.logger
	opts.Listener = listener{broker: r.broker, id: id}

	s := session.New(id, r.catalog, opts)
	if err := s.Start(ctx, totalRounds, roundSeconds); err != nil {
		return s, err
	}

	r.mu.Lock()
	r.sessions[id] = &entry{s: s, lastSeen: time.Now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("session created", "session", id, "live", n)
	return s, nil
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(time.Now())
	return e.s, nil
}

// Touch marks a live session as used. Unknown ids are ignored.
func (r *Registry) Touch(id string) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		e.touch(time.Now())
	}
}

// Remove exits the session and forgets it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.s.Exit()
	r.broker.Drop(id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions not used since ttl before now, and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time, ttl time.Duration) int {
	var stale []string
	r.mu.RLock()
	for id, e := range r.sessions {
		if now.Sub(e.idleSince()) > ttl {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if r.Remove(id) == nil {
			n++
		}
	}
	if n > 0 {
		r.logger.Info("idle sessions removed", "count", n)
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done, then exits all
// remaining sessions.
func (r *Registry) Run(ctx context.Context, ttl, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case now := <-t.C:
			r.Sweep(now, ttl)
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Remove(id)
	}
}

package audit

import (
	"context"
	"sync"

	"quorumcred/pkg/domain"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.Address) ([]Event, error)
	ListByCredential(ctx context.Context, id domain.CredentialID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// InMemoryStore keeps a bounded ring of recent events.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// DefaultCapacity bounds the in-memory audit trail.
const DefaultCapacity = 10_000

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{capacity: capacity}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor domain.Address) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.Actor == actor }), nil
}

func (s *InMemoryStore) ListByCredential(_ context.Context, id domain.CredentialID) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.CredentialID == id }), nil
}

// ListRecent returns up to limit events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *InMemoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

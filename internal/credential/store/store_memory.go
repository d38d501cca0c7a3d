package store

import (
	"context"
	"sync"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
)

// InMemoryStore keeps credentials in an arena keyed by ID and the feed in an
// append-only slice. A single lock makes each transition and its event atomic.
type InMemoryStore struct {
	mu          sync.RWMutex
	lastID      domain.CredentialID
	credentials map[domain.CredentialID]*models.Credential
	events      []models.Event
}

// NewInMemory constructs an empty in-memory credential store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[domain.CredentialID]*models.Credential)}
}

// Create allocates the next ID and appends the creation event.
func (s *InMemoryStore) Create(_ context.Context, c *models.Credential) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	stored := c.Clone()
	stored.ID = s.lastID
	stored.Signatures = nil
	s.credentials[stored.ID] = stored
	s.appendLocked(models.NewCreatedEvent(stored))
	return stored.Clone(), nil
}

// AddSignature appends signer and the signed event. The returned bool reports
// whether this signature made the credential valid.
func (s *InMemoryStore) AddSignature(_ context.Context, id domain.CredentialID, signer domain.Address, at time.Time) (*models.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if c.HasSigned(signer) {
		return nil, false, ErrAlreadySigned
	}
	flipped, err := c.AddSignature(signer, at)
	if err != nil {
		return nil, false, err
	}
	s.appendLocked(models.NewSignedEvent(c, signer, at))
	return c.Clone(), flipped, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// EventsAfter returns up to limit events with Sequence > after, oldest first.
func (s *InMemoryStore) EventsAfter(_ context.Context, after uint64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventPage
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sequences are 1-based and gapless, so the slice index is sequence-1.
	if after >= uint64(len(s.events)) {
		return nil, nil
	}
	end := min(int(after)+limit, len(s.events))
	out := make([]models.Event, end-int(after))
	copy(out, s.events[after:end])
	return out, nil
}

// LatestSequence returns the sequence of the newest event, or 0 when empty.
func (s *InMemoryStore) LatestSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events)), nil
}

// Count returns the number of stored credentials.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.credentials), nil
}

func (s *InMemoryStore) appendLocked(e models.Event) {
	e.Sequence = uint64(len(s.events)) + 1
	s.events = append(s.events, e)
}

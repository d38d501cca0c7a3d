package store

import (
	"context"
	"sync"

	"quorumcred/pkg/domain"
)

// InMemoryStore is a content-addressed blob map. The pinning store also uses
// it as a local cache.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Put stores blob and returns its reference. Storing the same bytes twice
// yields the same reference.
func (s *InMemoryStore) Put(_ context.Context, blob []byte) (domain.MetadataRef, error) {
	ref, err := RefFor(blob)
	if err != nil {
		return "", err
	}
	c, _ := ParseRef(ref)
	s.set(c.String(), blob)
	return ref, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref domain.MetadataRef) ([]byte, error) {
	c, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[c.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *InMemoryStore) set(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
}

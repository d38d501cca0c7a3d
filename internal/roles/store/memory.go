package store

import (
	"context"
	"sync"

	"quorumcred/pkg/domain"
)

// InMemoryStore keeps capability sets in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	sets map[domain.Capability]map[domain.Address]struct{}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sets: make(map[domain.Capability]map[domain.Address]struct{})}
}

func (s *InMemoryStore) Add(_ context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[capability]
	if !ok {
		set = make(map[domain.Address]struct{})
		s.sets[capability] = set
	}
	if _, exists := set[addr]; exists {
		return false, nil
	}
	set[addr] = struct{}{}
	return true, nil
}

func (s *InMemoryStore) Remove(_ context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[capability]
	if _, exists := set[addr]; !exists {
		return false, nil
	}
	delete(set, addr)
	return true, nil
}

func (s *InMemoryStore) Has(_ context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[capability][addr]
	return ok, nil
}

func (s *InMemoryStore) Members(_ context.Context, capability domain.Capability) ([]domain.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Address, 0, len(s.sets[capability]))
	for addr := range s.sets[capability] {
		out = append(out, addr)
	}
	sortAddresses(out)
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, capability domain.Capability) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets[capability]), nil
}

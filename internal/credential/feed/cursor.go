package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CursorStore remembers how far a named relay has published.
type CursorStore interface {
	Load(ctx context.Context, name string) (uint64, error)
	// Save records seq. A cursor never moves backwards.
	Save(ctx context.Context, name string, seq uint64) error
}

type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]uint64
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]uint64)}
}

func (s *MemoryCursorStore) Load(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[name], nil
}

func (s *MemoryCursorStore) Save(_ context.Context, name string, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.cursors[name] {
		s.cursors[name] = seq
	}
	return nil
}

const cursorKeyPrefix = "feed:cursor:"

// advanceScript sets the cursor only if it moves forward.
var advanceScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local proposed = tonumber(ARGV[1])
if proposed > current then
  redis.call('SET', KEYS[1], ARGV[1])
  return proposed
end
return current
`)

// RedisCursorStore shares relay progress between restarts and replicas.
type RedisCursorStore struct {
	client redis.UniversalClient
}

func NewRedisCursorStore(client redis.UniversalClient) *RedisCursorStore {
	return &RedisCursorStore{client: client}
}

func (s *RedisCursorStore) Load(ctx context.Context, name string) (uint64, error) {
	raw, err := s.client.Get(ctx, cursorKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load feed cursor %s: %w", name, err)
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse feed cursor %s: %w", name, err)
	}
	return seq, nil
}

func (s *RedisCursorStore) Save(ctx context.Context, name string, seq uint64) error {
	if err := advanceScript.Run(ctx, s.client, []string{cursorKeyPrefix + name}, seq).Err(); err != nil {
		return fmt.Errorf("save feed cursor %s: %w", name, err)
	}
	return nil
}

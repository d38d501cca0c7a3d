//go:build integration

// Package containers starts the backing services for integration tests with
// testcontainers. Each service starts once per test binary on first use; Ryuk
// removes the containers when the process exits.
package containers

import (
	"context"
	"sync"
	"testing"
	"time"
)

const startupTimeout = 90 * time.Second

// shared starts a container once and remembers the outcome, so a failed start
// fails every test that needs it instead of retrying per suite.
type shared[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (s *shared[T]) get(t *testing.T, name string, start func(context.Context) (T, error)) T {
	t.Helper()
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		s.val, s.err = start(ctx)
	})
	if s.err != nil {
		t.Fatalf("start %s container: %v", name, s.err)
	}
	return s.val
}

type Manager struct {
	postgres shared[*PostgresContainer]
	kafka    shared[*KafkaContainer]
	redis    shared[*RedisContainer]
}

var manager = &Manager{}

func GetManager() *Manager { return manager }

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, "postgres", startPostgres)
}

func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return m.kafka.get(t, "kafka", startKafka)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, "redis", startRedis)
}

package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quorumcred/pkg/domain"
)

const keyPrefix = "roles:"

// RedisStore keeps one redis set per capability (roles:<capability>) holding
// checksummed addresses, so several registry replicas share one authority.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func key(capability domain.Capability) string {
	return keyPrefix + capability.String()
}

func (s *RedisStore) Add(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	n, err := s.client.SAdd(ctx, key(capability), addr.String()).Result()
	if err != nil {
		return false, fmt.Errorf("grant %s: %w", capability, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Remove(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	n, err := s.client.SRem(ctx, key(capability), addr.String()).Result()
	if err != nil {
		return false, fmt.Errorf("revoke %s: %w", capability, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Has(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key(capability), addr.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check %s: %w", capability, err)
	}
	return ok, nil
}

func (s *RedisStore) Members(ctx context.Context, capability domain.Capability) ([]domain.Address, error) {
	raw, err := s.client.SMembers(ctx, key(capability)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s holders: %w", capability, err)
	}
	out := make([]domain.Address, 0, len(raw))
	for _, r := range raw {
		addr, err := domain.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("corrupt %s member %q: %w", capability, r, err)
		}
		out = append(out, addr)
	}
	sortAddresses(out)
	return out, nil
}

func (s *RedisStore) Count(ctx context.Context, capability domain.Capability) (int, error) {
	n, err := s.client.SCard(ctx, key(capability)).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s holders: %w", capability, err)
	}
	return int(n), nil
}

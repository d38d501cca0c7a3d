package walletauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quorumcred/pkg/domain"
)

// ErrNoChallenge is returned by Consume when no live challenge exists.
var ErrNoChallenge = errors.New("no pending challenge")

// Challenge is the message a wallet signs to prove control of its address.
type Challenge struct {
	Address   domain.Address `json:"address"`
	Nonce     string         `json:"nonce"`
	Message   string         `json:"message"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func newChallenge(addr domain.Address, nonce string, issuedAt time.Time, ttl time.Duration) *Challenge {
	c := &Challenge{
		Address:   addr,
		Nonce:     nonce,
		IssuedAt:  issuedAt.UTC(),
		ExpiresAt: issuedAt.Add(ttl).UTC(),
	}
	c.Message = strings.Join([]string{
		"Sign in to quorumcred",
		"",
		"Address: " + addr.String(),
		"Nonce: " + nonce,
		"Issued At: " + c.IssuedAt.Format(time.RFC3339),
		"Expiration Time: " + c.ExpiresAt.Format(time.RFC3339),
	}, "\n")
	return c
}

// ChallengeStore holds at most one pending challenge per address. Consume
// removes it, so each challenge can be answered once.
type ChallengeStore interface {
	Save(ctx context.Context, c *Challenge) error
	Consume(ctx context.Context, addr domain.Address, now time.Time) (*Challenge, error)
}

type InMemoryChallengeStore struct {
	mu      sync.Mutex
	pending map[domain.Address]*Challenge
}

func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{pending: make(map[domain.Address]*Challenge)}
}

func (s *InMemoryChallengeStore) Save(_ context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.pending[c.Address] = &cp
	return nil
}

func (s *InMemoryChallengeStore) Consume(_ context.Context, addr domain.Address, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[addr]
	if !ok {
		return nil, ErrNoChallenge
	}
	delete(s.pending, addr)
	if !now.Before(c.ExpiresAt) {
		return nil, ErrNoChallenge
	}
	return c, nil
}

const challengeKeyPrefix = "auth:challenge:"

// RedisChallengeStore lets any replica answer a challenge issued by another.
// Keys expire with the challenge.
type RedisChallengeStore struct {
	client redis.UniversalClient
}

func NewRedisChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Save(ctx context.Context, c *Challenge) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	value := c.Nonce + "|" + c.IssuedAt.Format(time.RFC3339Nano) + "|" + c.ExpiresAt.Format(time.RFC3339Nano)
	if err := s.client.Set(ctx, challengeKeyPrefix+c.Address.String(), value, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Consume(ctx context.Context, addr domain.Address, now time.Time) (*Challenge, error) {
	raw, err := s.client.GetDel(ctx, challengeKeyPrefix+addr.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoChallenge
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return nil, ErrNoChallenge
	}
	issuedAt, err1 := time.Parse(time.RFC3339Nano, parts[1])
	expiresAt, err2 := time.Parse(time.RFC3339Nano, parts[2])
	if err1 != nil || err2 != nil || !now.Before(expiresAt) {
		return nil, ErrNoChallenge
	}
	return newChallenge(addr, parts[0], issuedAt, expiresAt.Sub(issuedAt)), nil
}

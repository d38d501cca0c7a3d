// Package walletauth signs wallets in: the server hands out a one-time
// challenge, the wallet signs it with personal_sign, and a valid signature
// from the claimed address is exchanged for a bearer token.
package walletauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/requestcontext"
)

const DefaultChallengeTTL = 5 * time.Minute

// AuditPublisher records sign-in outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Token is the result of a successful sign-in.
type Token struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Address     domain.Address `json:"address"`
}

type Option func(*Service)

func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

type Service struct {
	challenges   ChallengeStore
	tokens       *TokenService
	challengeTTL time.Duration
	auditor      AuditPublisher
	logger       *slog.Logger
}

func NewService(challenges ChallengeStore, tokens *TokenService, opts ...Option) *Service {
	s := &Service{
		challenges:   challenges,
		tokens:       tokens,
		challengeTTL: DefaultChallengeTTL,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a fresh challenge for addr, replacing any pending one.
func (s *Service) Challenge(ctx context.Context, addr domain.Address) (*Challenge, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "address is required")
	}
	c := newChallenge(addr, uuid.NewString(), requestcontext.Now(ctx), s.challengeTTL)
	if err := s.challenges.Save(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store challenge")
	}
	return c, nil
}

// SignIn checks signature against the pending challenge for addr. The
// challenge is consumed whether or not the signature is valid.
func (s *Service) SignIn(ctx context.Context, addr domain.Address, signature string) (*Token, error) {
	c, err := s.challenges.Consume(ctx, addr, requestcontext.Now(ctx))
	if errors.Is(err, ErrNoChallenge) {
		s.signInFailed(ctx, addr, "no_challenge")
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "no pending challenge for address")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge")
	}

	signer, err := RecoverSigner(c.Message, signature)
	if err != nil {
		s.signInFailed(ctx, addr, "malformed_signature")
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid signature")
	}
	if signer != addr {
		s.signInFailed(ctx, addr, "signer_mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "signature does not match address")
	}

	access, expiresAt, err := s.tokens.Issue(ctx, addr)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, audit.Event{Actor: addr, Action: audit.ActionSignInSuccess})
	return &Token{AccessToken: access, TokenType: "Bearer", ExpiresAt: expiresAt, Address: addr}, nil
}

func (s *Service) signInFailed(ctx context.Context, addr domain.Address, reason string) {
	s.logger.WarnContext(ctx, "wallet sign-in failed",
		"address", addr.String(),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.Event{Actor: addr, Action: audit.ActionSignInFailed, Reason: reason})
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

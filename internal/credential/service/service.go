package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quorumcred/internal/credential/metrics"
	"quorumcred/internal/credential/models"
	"quorumcred/internal/credential/store"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	platformsync "quorumcred/pkg/platform/sync"
)

// Store persists credentials and their event feed.
// Error Contract:
// - FindByID and AddSignature return store.ErrNotFound for an unknown id
// - AddSignature returns store.ErrAlreadySigned for a duplicate signer
// - each mutation and its feed event are applied atomically or not at all
type Store interface {
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)
	AddSignature(ctx context.Context, id domain.CredentialID, signer domain.Address, at time.Time) (*models.Credential, bool, error)
	FindByID(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	EventsAfter(ctx context.Context, after uint64, limit int) ([]models.Event, error)
	LatestSequence(ctx context.Context) (uint64, error)
}

// RoleAuthority answers capability questions. It is queried on every mutating
// call and its answers are never cached.
type RoleAuthority interface {
	HasCapability(ctx context.Context, addr domain.Address, capability domain.Capability) (bool, error)
}

// ValidatorCounter reports how many addresses currently hold a capability.
// Only the threshold policy consults it.
type ValidatorCounter interface {
	CountHolders(ctx context.Context, capability domain.Capability) (int, error)
}

// AuditPublisher records security-relevant actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CreateCommand carries the issuer-supplied creation parameters.
type CreateCommand struct {
	Student            domain.Address
	MetadataRef        domain.MetadataRef
	RequiredSignatures int
}

type Option func(*Service)

// Service is the credential registry: it creates credentials, records
// validator signatures and answers point reads.
type Service struct {
	store           Store
	roles           RoleAuthority
	validators      ValidatorCounter
	selfSigning     models.SelfSigningPolicy
	thresholdPolicy models.ThresholdPolicy
	auditor         AuditPublisher
	metrics         *metrics.Metrics
	tracer          tracer.Tracer
	logger          *slog.Logger
	tx              *credentialTx
}

func WithThresholdPolicy(p models.ThresholdPolicy) Option {
	return func(s *Service) {
		s.thresholdPolicy = p
	}
}

// WithValidatorCounter enables threshold reachability checks.
func WithValidatorCounter(c ValidatorCounter) Option {
	return func(s *Service) {
		s.validators = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLockTimeout bounds how long a signature may wait for its credential's
// lock. A wait that runs out fails with CodeTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tx.lockTimeout = d
		}
	}
}

// New builds the registry. The self-signing policy has no default and must be
// chosen by the caller.
func New(st Store, roles RoleAuthority, selfSigning models.SelfSigningPolicy, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("credential store is required")
	}
	if roles == nil {
		return nil, errors.New("role authority is required")
	}
	policy, err := models.ParseSelfSigningPolicy(string(selfSigning))
	if err != nil {
		return nil, err
	}
	svc := &Service{
		store:           st,
		roles:           roles,
		selfSigning:     policy,
		thresholdPolicy: models.ThresholdUnbounded,
		tracer:          tracer.NewNoop(),
		logger:          slog.Default(),
		tx: &credentialTx{
			mu:          platformsync.NewShardedMutex(platformsync.DefaultShards),
			store:       st,
			lockTimeout: defaultLockTimeout,
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if _, err := models.ParseThresholdPolicy(string(svc.thresholdPolicy)); err != nil {
		return nil, err
	}
	if svc.thresholdPolicy == models.ThresholdValidatorCount && svc.validators == nil {
		return nil, errors.New("validator_count threshold policy requires a validator counter")
	}
	svc.tx.metrics = svc.metrics
	return svc, nil
}

// SelfSigningPolicy reports the configured policy, for health and diagnostics.
func (s *Service) SelfSigningPolicy() models.SelfSigningPolicy {
	return s.selfSigning
}

func (s *Service) GetCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateStoreError(err, "failed to load credential")
	}
	return c, nil
}

func (s *Service) GetSignatureCount(ctx context.Context, id domain.CredentialID) (int, error) {
	c, err := s.GetCredential(ctx, id)
	if err != nil {
		return 0, err
	}
	return c.SignatureCount(), nil
}

func (s *Service) IsCredentialValid(ctx context.Context, id domain.CredentialID) (bool, error) {
	c, err := s.GetCredential(ctx, id)
	if err != nil {
		return false, err
	}
	return c.IsValid(), nil
}

// Events returns up to limit feed entries with a sequence above after.
func (s *Service) Events(ctx context.Context, after uint64, limit int) ([]models.Event, error) {
	events, err := s.store.EventsAfter(ctx, after, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read event feed")
	}
	return events, nil
}

// LatestSequence is the highest committed feed sequence, or 0 when empty.
func (s *Service) LatestSequence(ctx context.Context) (uint64, error) {
	seq, err := s.store.LatestSequence(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read feed head")
	}
	return seq, nil
}

// translateStoreError maps store sentinels to domain codes. This is the only
// place store errors are interpreted.
func (s *Service) translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, store.ErrAlreadySigned):
		return dErrors.New(dErrors.CodeAlreadySigned, "validator already signed this credential")
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// Package service is the role authority: it answers whether an address holds
// a capability and lets operators grant and revoke capabilities.
package service

import (
	"context"
	"log/slog"

	"quorumcred/internal/roles/metrics"
	"quorumcred/internal/roles/models"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/requestcontext"
)

// Store persists capability sets.
// Error Contract:
// - Add and Remove report whether membership changed; repeats are not errors
// - infrastructure failures are returned wrapped
type Store interface {
	Add(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error)
	Remove(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error)
	Has(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error)
	Members(ctx context.Context, capability domain.Capability) ([]domain.Address, error)
	Count(ctx context.Context, capability domain.Capability) (int, error)
}

// AuditPublisher records role changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Option func(*Service)

type Service struct {
	store   Store
	auditor AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasCapability reads the store on every call; nothing is cached. Store
// failures are returned as-is so the registry can tell them from a denial.
func (s *Service) HasCapability(ctx context.Context, addr domain.Address, capability domain.Capability) (bool, error) {
	if !capability.IsValid() {
		return false, dErrors.New(dErrors.CodeBadRequest, "unknown capability: "+capability.String())
	}
	if addr.IsZero() {
		return false, nil
	}
	ok, err := s.store.Has(ctx, capability, addr)
	switch {
	case err != nil:
		s.incrementCheck(capability, "error")
		return false, err
	case ok:
		s.incrementCheck(capability, "granted")
	default:
		s.incrementCheck(capability, "denied")
	}
	return ok, nil
}

// CountHolders reports how many addresses hold capability.
func (s *Service) CountHolders(ctx context.Context, capability domain.Capability) (int, error) {
	if !capability.IsValid() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "unknown capability: "+capability.String())
	}
	n, err := s.store.Count(ctx, capability)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.SetHolders(capability.String(), n)
	}
	return n, nil
}

// Grant gives addr the capability. Granting a held capability changes
// nothing and reports false.
func (s *Service) Grant(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	return s.change(ctx, capability, addr, audit.ActionRoleGranted, models.AuditReasonAdminRequest)
}

// Revoke removes the capability. Revoking one that is not held reports false.
func (s *Service) Revoke(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error) {
	return s.change(ctx, capability, addr, audit.ActionRoleRevoked, models.AuditReasonAdminRequest)
}

// Holders lists the addresses holding capability.
func (s *Service) Holders(ctx context.Context, capability domain.Capability) ([]domain.Address, error) {
	if !capability.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown capability: "+capability.String())
	}
	members, err := s.store.Members(ctx, capability)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holders")
	}
	return members, nil
}

// RolesOf lists the capabilities addr holds, in domain.Capabilities order.
func (s *Service) RolesOf(ctx context.Context, addr domain.Address) ([]domain.Capability, error) {
	held := make([]domain.Capability, 0, len(domain.Capabilities))
	for _, c := range domain.Capabilities {
		ok, err := s.store.Has(ctx, c, addr)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "role authority unavailable")
		}
		if ok {
			held = append(held, c)
		}
	}
	return held, nil
}

// Summary resolves the capabilities and primary role of addr.
func (s *Service) Summary(ctx context.Context, addr domain.Address) (*models.Summary, error) {
	caps, err := s.RolesOf(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &models.Summary{Address: addr, Capabilities: caps, PrimaryRole: models.PrimaryRole(caps)}, nil
}

// Bootstrap grants the configured initial issuers and validators. It is
// idempotent, so it runs on every start.
func (s *Service) Bootstrap(ctx context.Context, issuers, validators []domain.Address) error {
	grants := map[domain.Capability][]domain.Address{
		domain.CapabilityIssuer:    issuers,
		domain.CapabilityValidator: validators,
	}
	for _, c := range domain.Capabilities {
		for _, addr := range grants[c] {
			if _, err := s.change(ctx, c, addr, audit.ActionRoleGranted, models.AuditReasonBootstrap); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) change(ctx context.Context, capability domain.Capability, addr domain.Address, action, reason string) (bool, error) {
	if !capability.IsValid() {
		return false, dErrors.New(dErrors.CodeBadRequest, "unknown capability: "+capability.String())
	}
	if addr.IsZero() {
		return false, dErrors.New(dErrors.CodeInvalidArgument, "address must not be the zero address")
	}

	var (
		changed bool
		err     error
	)
	if action == audit.ActionRoleGranted {
		changed, err = s.store.Add(ctx, capability, addr)
	} else {
		changed, err = s.store.Remove(ctx, capability, addr)
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}
	if !changed {
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementChange(capability.String(), action)
	}
	s.logger.InfoContext(ctx, "role changed",
		"action", action,
		"capability", capability.String(),
		"address", addr.String(),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.Event{
		Subject:    addr.String(),
		Capability: capability.String(),
		Action:     action,
		Reason:     reason,
	})
	return true, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if caller, ok := requestcontext.Caller(ctx); ok {
		event.Actor = caller
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func (s *Service) incrementCheck(capability domain.Capability, result string) {
	if s.metrics != nil {
		s.metrics.IncrementCheck(capability.String(), result)
	}
}

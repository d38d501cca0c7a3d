package service

import (
	"context"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
)

// hasCapability asks the role authority. A lookup failure is not a denial:
// it surfaces as Unavailable so callers can retry.
func (s *Service) hasCapability(ctx context.Context, addr domain.Address, capability domain.Capability) (bool, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCapabilityCheck,
		tracer.String(tracer.AttrCapability, capability.String()),
	)
	ok, err := s.roles.HasCapability(ctx, addr, capability)
	span.End(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "role authority lookup failed",
			"error", err,
			"capability", capability.String(),
			"address", addr.String(),
		)
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "role authority unavailable")
	}
	return ok, nil
}

func (s *Service) recordDenied(ctx context.Context, op string, caller domain.Address, id domain.CredentialID, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementDenied(op, reason)
	}
	s.logger.WarnContext(ctx, "credential mutation denied",
		"operation", op,
		"caller", caller.String(),
		"credential_id", id.String(),
		"reason", reason,
	)
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Actor:        caller,
		CredentialID: id,
		Action:       models.AuditActionMutationDenied,
		Decision:     models.AuditDecisionDenied,
		Reason:       reason,
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
	}
}

func (s *Service) emitAudit(ctx context.Context, actor domain.Address, c *models.Credential, action string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Actor:        actor,
		Subject:      c.Student.String(),
		CredentialID: c.ID,
		Action:       action,
		Decision:     models.AuditDecisionGranted,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

func (s *Service) observeLatency(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperationLatency(op, time.Since(start).Seconds())
	}
}

func (s *Service) incrementCreated(required int) {
	if s.metrics != nil {
		s.metrics.IncrementCreated(required)
	}
}

func (s *Service) incrementSigned() {
	if s.metrics != nil {
		s.metrics.IncrementSigned()
	}
}

func (s *Service) incrementValidated() {
	if s.metrics != nil {
		s.metrics.IncrementValidated()
	}
}

func (s *Service) incrementUnreachableThreshold() {
	if s.metrics != nil {
		s.metrics.IncrementUnreachableThreshold()
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/requestcontext"
)

const opCreate = "create"

// CreateCredential records a pending credential issued by caller.
//
// Checks run in a fixed order: caller capability, then arguments, then the
// threshold policy. A failed call allocates no id and appends no event.
func (s *Service) CreateCredential(ctx context.Context, caller domain.Address, cmd CreateCommand) (_ *models.Credential, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialCreate,
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.Int(tracer.AttrThreshold, cmd.RequiredSignatures),
	)
	defer func() { span.End(err) }()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "missing caller")
	}

	allowed, err := s.hasCapability(ctx, caller, domain.CapabilityIssuer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.recordDenied(ctx, opCreate, caller, 0, models.AuditReasonMissingIssuer)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller lacks issuer capability")
	}

	cred, err := models.NewCredential(cmd.Student, caller, cmd.MetadataRef, cmd.RequiredSignatures, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.checkThreshold(ctx, cmd.RequiredSignatures); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, cred)
	if err != nil {
		return nil, s.translateStoreError(err, "failed to create credential")
	}

	span.SetAttributes(tracer.Int64(tracer.AttrCredentialID, int64(created.ID)))
	s.observeLatency(opCreate, start)
	s.incrementCreated(created.RequiredSignatures)
	s.logger.InfoContext(ctx, "credential created",
		"credential_id", created.ID.String(),
		"issuer", caller.String(),
		"student", created.Student.String(),
		"required_signatures", created.RequiredSignatures,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, caller, created, models.AuditActionCredentialCreated)
	return created, nil
}

// checkThreshold applies the threshold policy. Under the unbounded policy an
// unreachable threshold is accepted and reported; under validator_count it is
// rejected.
func (s *Service) checkThreshold(ctx context.Context, required int) error {
	if s.validators == nil {
		return nil
	}
	count, err := s.validators.CountHolders(ctx, domain.CapabilityValidator)
	if err != nil {
		if s.thresholdPolicy == models.ThresholdValidatorCount {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "role authority unavailable")
		}
		s.logger.WarnContext(ctx, "validator count unavailable, skipping threshold check", "error", err)
		return nil
	}
	if required <= count {
		return nil
	}
	if s.thresholdPolicy == models.ThresholdValidatorCount {
		return dErrors.New(dErrors.CodeInvalidArgument,
			fmt.Sprintf("required signatures %d exceeds the %d current validators", required, count))
	}
	s.logger.WarnContext(ctx, "credential threshold currently unreachable",
		"required_signatures", required,
		"validators", count,
	)
	s.incrementUnreachableThreshold()
	return nil
}

package service

import (
	"context"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/requestcontext"
)

const opSign = "sign"

// SignCredential adds caller's signature to credential id.
//
// Failures are reported in this order: NotFound, Unauthorized (no validator
// capability, or self-signing when forbidden), AlreadySigned. The append and
// the status change it may cause are one atomic step.
func (s *Service) SignCredential(ctx context.Context, caller domain.Address, id domain.CredentialID) (_ *models.Credential, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanCredentialSign,
		tracer.String(tracer.AttrCaller, caller.String()),
		tracer.Int64(tracer.AttrCredentialID, int64(id)),
	)
	defer func() { span.End(err) }()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "missing caller")
	}

	// Existence and issuer are write-once, so these checks hold once passed.
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateStoreError(err, "failed to load credential")
	}

	allowed, err := s.hasCapability(ctx, caller, domain.CapabilityValidator)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.recordDenied(ctx, opSign, caller, id, models.AuditReasonMissingValidator)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller lacks validator capability")
	}
	if s.selfSigning == models.SelfSigningForbid && current.Issuer == caller {
		s.recordDenied(ctx, opSign, caller, id, models.AuditReasonSelfSigning)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "issuers may not sign their own credentials")
	}

	var (
		updated     *models.Credential
		becameValid bool
	)
	err = s.tx.RunInTx(ctx, id, func(ctx context.Context, st Store) error {
		var txErr error
		updated, becameValid, txErr = st.AddSignature(ctx, id, caller, requestcontext.Now(ctx))
		return txErr
	})
	if err != nil {
		translated := s.translateStoreError(err, "failed to record signature")
		if dErrors.HasCode(translated, dErrors.CodeAlreadySigned) {
			s.recordDenied(ctx, opSign, caller, id, models.AuditReasonAlreadySigned)
		}
		return nil, translated
	}

	span.SetAttributes(
		tracer.Int(tracer.AttrSignatureCount, updated.SignatureCount()),
		tracer.Bool(tracer.AttrBecameValid, becameValid),
	)
	s.observeLatency(opSign, start)
	s.incrementSigned()
	s.logger.InfoContext(ctx, "credential signed",
		"credential_id", id.String(),
		"signer", caller.String(),
		"signature_count", updated.SignatureCount(),
		"required_signatures", updated.RequiredSignatures,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, caller, updated, models.AuditActionCredentialSigned)
	if becameValid {
		s.incrementValidated()
		s.logger.InfoContext(ctx, "credential became valid", "credential_id", id.String())
		s.emitAudit(ctx, caller, updated, models.AuditActionCredentialValidated)
	}
	return updated, nil
}

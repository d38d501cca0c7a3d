package service

import (
	"context"
	"time"

	"go.uber.org/mock/gomock"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/testutil"
)

func (s *ServiceSuite) TestSignCredential_ThresholdScenario() {
	cred := s.createCredential(2)

	_, err := s.sign(testutil.Validator1, cred.ID)
	s.Require().NoError(err)
	count, _ := s.service.GetSignatureCount(s.ctx, cred.ID)
	valid, _ := s.service.IsCredentialValid(s.ctx, cred.ID)
	s.Equal(1, count)
	s.False(valid)

	updated, err := s.sign(testutil.Validator2, cred.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusValid, updated.Status())
	count, _ = s.service.GetSignatureCount(s.ctx, cred.ID)
	valid, _ = s.service.IsCredentialValid(s.ctx, cred.ID)
	s.Equal(2, count)
	s.True(valid)

	_, err = s.sign(testutil.Validator1, cred.ID)
	s.assertCode(err, dErrors.CodeAlreadySigned)
	count, _ = s.service.GetSignatureCount(s.ctx, cred.ID)
	s.Equal(2, count, "a duplicate leaves the count unchanged")

	s.Equal([]string{
		models.AuditActionCredentialCreated,
		models.AuditActionCredentialSigned,
		models.AuditActionCredentialSigned,
		models.AuditActionCredentialValidated,
		models.AuditActionMutationDenied,
	}, s.auditActions())
}

func (s *ServiceSuite) TestSignCredential_UnknownID() {
	// No role authority call is expected: existence is checked first.
	_, err := s.service.SignCredential(s.ctx, testutil.Validator1, 42)
	s.assertCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestSignCredential_RevokedValidator() {
	first := s.createCredential(2)
	second := s.createCredential(2)

	_, err := s.sign(testutil.Validator1, first.ID)
	s.Require().NoError(err)

	s.expectCapability(testutil.Validator1, domain.CapabilityValidator, false)
	_, err = s.service.SignCredential(s.ctx, testutil.Validator1, second.ID)
	s.assertCode(err, dErrors.CodeUnauthorized)

	count, _ := s.service.GetSignatureCount(s.ctx, second.ID)
	s.Zero(count)
}

func (s *ServiceSuite) TestSignCredential_CapabilityCheckedBeforeDuplicate() {
	cred := s.createCredential(3)
	_, err := s.sign(testutil.Validator1, cred.ID)
	s.Require().NoError(err)

	s.expectCapability(testutil.Validator1, domain.CapabilityValidator, false)
	_, err = s.service.SignCredential(s.ctx, testutil.Validator1, cred.ID)
	s.assertCode(err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestSignCredential_SelfSigningPolicy() {
	s.Run("forbid rejects the issuer even with validator capability", func() {
		svc := s.newService(models.SelfSigningForbid)
		cred := s.createCredential(1)

		s.expectCapability(testutil.Issuer, domain.CapabilityValidator, true)
		_, err := svc.SignCredential(s.ctx, testutil.Issuer, cred.ID)
		s.assertCode(err, dErrors.CodeUnauthorized)

		valid, err := svc.IsCredentialValid(s.ctx, cred.ID)
		s.Require().NoError(err)
		s.False(valid)
	})

	s.Run("allow lets the issuer co-sign", func() {
		svc := s.newService(models.SelfSigningAllow)
		cred := s.createCredential(1)

		s.expectCapability(testutil.Issuer, domain.CapabilityValidator, true)
		updated, err := svc.SignCredential(s.ctx, testutil.Issuer, cred.ID)
		s.Require().NoError(err)
		s.True(updated.IsValid())
	})
}

func (s *ServiceSuite) TestSignCredential_PastThresholdStaysValid() {
	cred := s.createCredential(1)

	first, err := s.sign(testutil.Validator1, cred.ID)
	s.Require().NoError(err)
	s.True(first.IsValid())

	second, err := s.sign(testutil.Validator2, cred.ID)
	s.Require().NoError(err)
	s.True(second.IsValid())
	s.Equal([]domain.Address{testutil.Validator1, testutil.Validator2}, second.Signers())

	validated := 0
	for _, action := range s.auditActions() {
		if action == models.AuditActionCredentialValidated {
			validated++
		}
	}
	s.Equal(1, validated, "the pending to valid transition happens once")
}

func (s *ServiceSuite) TestSignCredential_StatusTracksCountAfterEverySignature() {
	cred := s.createCredential(3)
	validators := []domain.Address{testutil.Validator1, testutil.Validator2, testutil.Validator3, testutil.Address(0xa4)}

	for i, v := range validators {
		updated, err := s.sign(v, cred.ID)
		s.Require().NoError(err)
		s.Equal(i+1, updated.SignatureCount())
		s.Equal(updated.SignatureCount() >= updated.RequiredSignatures, updated.IsValid())
	}
}

func (s *ServiceSuite) TestSignCredential_MissingCaller() {
	cred := s.createCredential(1)
	_, err := s.service.SignCredential(s.ctx, domain.Address{}, cred.ID)
	s.assertCode(err, dErrors.CodeUnauthenticated)
}

func (s *ServiceSuite) TestSignCredential_CancelledContext() {
	cred := s.createCredential(1)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	s.mockRoles.EXPECT().HasCapability(gomock.Any(), testutil.Validator1, domain.CapabilityValidator).Return(true, nil)
	_, err := s.service.SignCredential(ctx, testutil.Validator1, cred.ID)
	s.assertCode(err, dErrors.CodeTimeout)

	count, _ := s.service.GetSignatureCount(s.ctx, cred.ID)
	s.Zero(count)
}

func (s *ServiceSuite) TestSignCredential_LockWaitIsBounded() {
	s.service = s.newService(models.SelfSigningAllow, WithLockTimeout(20*time.Millisecond))
	cred := s.createCredential(2)

	key := cred.ID.String()
	s.service.tx.mu.Lock(key)
	start := time.Now()
	_, err := s.sign(testutil.Validator1, cred.ID)
	s.service.tx.mu.Unlock(key)

	s.assertCode(err, dErrors.CodeTimeout)
	s.Less(time.Since(start), time.Second)
	count, _ := s.service.GetSignatureCount(s.ctx, cred.ID)
	s.Equal(0, count)

	_, err = s.sign(testutil.Validator1, cred.ID)
	s.Require().NoError(err, "the lock is usable once released")
}

package service

import (
	"errors"

	"go.uber.org/mock/gomock"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/credential/service/mocks"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/testutil"
)

func (s *ServiceSuite) validCommand() CreateCommand {
	return CreateCommand{
		Student:            testutil.Student,
		MetadataRef:        "ipfs://bafkreitestcredential",
		RequiredSignatures: 2,
	}
}

func (s *ServiceSuite) TestCreateCredential() {
	s.Run("issuer creates a pending credential and its event", func() {
		s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)

		cred, err := s.service.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
		s.Require().NoError(err)
		s.EqualValues(1, cred.ID)
		s.Equal(testutil.Issuer, cred.Issuer)
		s.Equal(models.StatusPending, cred.Status())
		s.Zero(cred.SignatureCount())
		s.Equal(testutil.FixedTime, cred.CreatedAt)

		events, err := s.store.EventsAfter(s.ctx, 0, 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(&models.CredentialCreated{
			Student:            testutil.Student,
			Issuer:             testutil.Issuer,
			MetadataRef:        "ipfs://bafkreitestcredential",
			RequiredSignatures: 2,
		}, events[0].Created)
		s.Equal([]string{models.AuditActionCredentialCreated}, s.auditActions())
	})
}

func (s *ServiceSuite) TestCreateCredential_NonIssuerAllocatesNoID() {
	s.expectCapability(testutil.Outsider, domain.CapabilityIssuer, false)
	_, err := s.service.CreateCredential(s.ctx, testutil.Outsider, s.validCommand())
	s.assertCode(err, dErrors.CodeUnauthorized)

	seq, err := s.store.LatestSequence(s.ctx)
	s.Require().NoError(err)
	s.Zero(seq, "a rejected create appends nothing")

	cred := s.createCredential(2)
	s.EqualValues(1, cred.ID, "ids are allocated only on success")
	s.Equal([]string{models.AuditActionMutationDenied, models.AuditActionCredentialCreated}, s.auditActions())
}

func (s *ServiceSuite) TestCreateCredential_InvalidArguments() {
	cases := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"zero threshold", func(c *CreateCommand) { c.RequiredSignatures = 0 }},
		{"negative threshold", func(c *CreateCommand) { c.RequiredSignatures = -3 }},
		{"zero student", func(c *CreateCommand) { c.Student = domain.Address{} }},
		{"empty metadata ref", func(c *CreateCommand) { c.MetadataRef = "  " }},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			cmd := s.validCommand()
			tc.mutate(&cmd)
			s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)

			_, err := s.service.CreateCredential(s.ctx, testutil.Issuer, cmd)
			s.assertCode(err, dErrors.CodeInvalidArgument)
			count, err := s.store.Count(s.ctx)
			s.Require().NoError(err)
			s.Zero(count, "no record is created")
		})
	}
}

func (s *ServiceSuite) TestCreateCredential_CapabilityCheckedBeforeArguments() {
	s.expectCapability(testutil.Outsider, domain.CapabilityIssuer, false)
	cmd := s.validCommand()
	cmd.RequiredSignatures = 0

	_, err := s.service.CreateCredential(s.ctx, testutil.Outsider, cmd)
	s.assertCode(err, dErrors.CodeUnauthorized)
}

func (s *ServiceSuite) TestCreateCredential_MissingCaller() {
	_, err := s.service.CreateCredential(s.ctx, domain.Address{}, s.validCommand())
	s.assertCode(err, dErrors.CodeUnauthenticated)
}

func (s *ServiceSuite) TestCreateCredential_RoleAuthorityFailure() {
	s.mockRoles.EXPECT().
		HasCapability(gomock.Any(), testutil.Issuer, domain.CapabilityIssuer).
		Return(false, errors.New("redis: connection refused"))

	_, err := s.service.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
	s.assertCode(err, dErrors.CodeUnavailable)
	s.Empty(s.auditActions(), "an unreachable authority is not a denial")
}

func (s *ServiceSuite) TestCreateCredential_ThresholdPolicy() {
	counter := mocks.NewMockValidatorCounter(s.ctrl)

	s.Run("unbounded accepts an unreachable threshold", func() {
		svc := s.newService(models.SelfSigningAllow, WithValidatorCounter(counter))
		s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
		counter.EXPECT().CountHolders(gomock.Any(), domain.CapabilityValidator).Return(1, nil)

		cmd := s.validCommand()
		cmd.RequiredSignatures = 5
		cred, err := svc.CreateCredential(s.ctx, testutil.Issuer, cmd)
		s.Require().NoError(err)
		s.Equal(5, cred.RequiredSignatures)
	})

	s.Run("validator_count rejects an unreachable threshold", func() {
		svc := s.newService(models.SelfSigningAllow,
			WithValidatorCounter(counter),
			WithThresholdPolicy(models.ThresholdValidatorCount),
		)
		s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
		counter.EXPECT().CountHolders(gomock.Any(), domain.CapabilityValidator).Return(2, nil)

		cmd := s.validCommand()
		cmd.RequiredSignatures = 3
		_, err := svc.CreateCredential(s.ctx, testutil.Issuer, cmd)
		s.assertCode(err, dErrors.CodeInvalidArgument)
	})

	s.Run("validator_count accepts a reachable threshold", func() {
		svc := s.newService(models.SelfSigningAllow,
			WithValidatorCounter(counter),
			WithThresholdPolicy(models.ThresholdValidatorCount),
		)
		s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
		counter.EXPECT().CountHolders(gomock.Any(), domain.CapabilityValidator).Return(2, nil)

		_, err := svc.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
		s.NoError(err)
	})

	s.Run("validator_count fails closed when the count is unavailable", func() {
		svc := s.newService(models.SelfSigningAllow,
			WithValidatorCounter(counter),
			WithThresholdPolicy(models.ThresholdValidatorCount),
		)
		s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
		counter.EXPECT().CountHolders(gomock.Any(), domain.CapabilityValidator).Return(0, errors.New("timeout"))

		_, err := svc.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
		s.assertCode(err, dErrors.CodeUnavailable)
	})
}

func (s *ServiceSuite) TestCreateCredential_StoreFailureIsInternal() {
	mockStore := mocks.NewMockStore(s.ctrl)
	svc, err := New(mockStore, s.mockRoles, models.SelfSigningAllow)
	s.Require().NoError(err)

	s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
	mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err = svc.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
	s.assertCode(err, dErrors.CodeInternal)
}

func (s *ServiceSuite) TestCreateCredential_AuditFailureDoesNotFailCreate() {
	auditor := mocks.NewMockAuditPublisher(s.ctrl)
	svc := s.newService(models.SelfSigningAllow, WithAuditPublisher(auditor))

	s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(dErrors.New(dErrors.CodeUnavailable, "audit buffer full"))

	_, err := svc.CreateCredential(s.ctx, testutil.Issuer, s.validCommand())
	s.NoError(err)
}

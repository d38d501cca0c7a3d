package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"quorumcred/internal/credential/metrics"
	"quorumcred/internal/credential/models"
	"quorumcred/internal/credential/service/mocks"
	"quorumcred/internal/credential/store"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/platform/audit/publisher"
	"quorumcred/pkg/requestcontext"
	"quorumcred/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockRoles  *mocks.MockRoleAuthority
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
	ctx        context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRoles = mocks.NewMockRoleAuthority(s.ctrl)
	s.store = store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore(0)
	s.service = s.newService(models.SelfSigningAllow)
	s.ctx = requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-test"), testutil.FixedTime)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) newService(policy models.SelfSigningPolicy, opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithAuditPublisher(publisher.New(s.auditStore)),
	}
	svc, err := New(s.store, s.mockRoles, policy, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

// expectCapability registers one role authority answer.
func (s *ServiceSuite) expectCapability(addr domain.Address, capability domain.Capability, has bool) {
	s.mockRoles.EXPECT().HasCapability(gomock.Any(), addr, capability).Return(has, nil)
}

// createCredential issues a credential through the service as testutil.Issuer.
func (s *ServiceSuite) createCredential(required int) *models.Credential {
	s.expectCapability(testutil.Issuer, domain.CapabilityIssuer, true)
	cred, err := s.service.CreateCredential(s.ctx, testutil.Issuer, CreateCommand{
		Student:            testutil.Student,
		MetadataRef:        "ipfs://bafkreitestcredential",
		RequiredSignatures: required,
	})
	s.Require().NoError(err)
	return cred
}

func (s *ServiceSuite) sign(validator domain.Address, id domain.CredentialID) (*models.Credential, error) {
	s.expectCapability(validator, domain.CapabilityValidator, true)
	return s.service.SignCredential(s.ctx, validator, id)
}

func (s *ServiceSuite) auditActions() []string {
	events, err := s.auditStore.ListRecent(context.Background(), 0)
	s.Require().NoError(err)
	out := make([]string, len(events))
	// ListRecent is newest first; report in emission order.
	for i, e := range events {
		out[len(events)-1-i] = e.Action
	}
	return out
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "unexpected error: %v", err)
}

func (s *ServiceSuite) TestNew() {
	s.Run("self-signing policy must be explicit", func() {
		_, err := New(s.store, s.mockRoles, "")
		s.assertCode(err, dErrors.CodeInvalidArgument)
	})
	s.Run("unknown threshold policy", func() {
		_, err := New(s.store, s.mockRoles, models.SelfSigningForbid, WithThresholdPolicy("lenient"))
		s.assertCode(err, dErrors.CodeInvalidArgument)
	})
	s.Run("validator_count needs a counter", func() {
		_, err := New(s.store, s.mockRoles, models.SelfSigningForbid, WithThresholdPolicy(models.ThresholdValidatorCount))
		s.Error(err)
	})
	s.Run("collaborators required", func() {
		_, err := New(nil, s.mockRoles, models.SelfSigningAllow)
		s.Error(err)
		_, err = New(s.store, nil, models.SelfSigningAllow)
		s.Error(err)
	})
	s.Run("policy is normalized", func() {
		svc, err := New(s.store, s.mockRoles, " Forbid ")
		s.Require().NoError(err)
		s.Equal(models.SelfSigningForbid, svc.SelfSigningPolicy())
	})
}

func (s *ServiceSuite) TestReads() {
	cred := s.createCredential(2)

	got, err := s.service.GetCredential(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(testutil.Student, got.Student)
	s.Equal(models.StatusPending, got.Status())

	count, err := s.service.GetSignatureCount(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Zero(count)

	valid, err := s.service.IsCredentialValid(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.False(valid)

	s.Run("unknown id is NotFound for every read", func() {
		_, err := s.service.GetCredential(s.ctx, 99)
		s.assertCode(err, dErrors.CodeNotFound)
		_, err = s.service.GetSignatureCount(s.ctx, 99)
		s.assertCode(err, dErrors.CodeNotFound)
		_, err = s.service.IsCredentialValid(s.ctx, 99)
		s.assertCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestEvents() {
	cred := s.createCredential(1)
	_, err := s.sign(testutil.Validator1, cred.ID)
	s.Require().NoError(err)

	events, err := s.service.Events(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(models.EventCredentialCreated, events[0].Type)
	s.Equal(testutil.Issuer, events[0].Created.Issuer)
	s.Equal(models.EventCredentialSigned, events[1].Type)
	s.Equal(1, events[1].Signed.SignatureCount)

	head, err := s.service.LatestSequence(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), head)
}

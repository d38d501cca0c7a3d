package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"quorumcred/internal/roles/metrics"
	"quorumcred/internal/roles/models"
	"quorumcred/internal/roles/service/mocks"
	"quorumcred/internal/roles/store"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/platform/audit/publisher"
	"quorumcred/pkg/requestcontext"
	fixtures "quorumcred/pkg/testutil"
)

type RolesServiceSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
	ctx        context.Context
}

func TestRolesServiceSuite(t *testing.T) {
	suite.Run(t, new(RolesServiceSuite))
}

func (s *RolesServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = audit.NewInMemoryStore(0)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithAuditPublisher(publisher.New(s.auditStore)),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-roles")
}

func (s *RolesServiceSuite) TestGrantThenCheck() {
	changed, err := s.service.Grant(s.ctx, domain.CapabilityValidator, fixtures.Validator1)
	s.Require().NoError(err)
	s.True(changed)

	ok, err := s.service.HasCapability(s.ctx, fixtures.Validator1, domain.CapabilityValidator)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.service.HasCapability(s.ctx, fixtures.Validator1, domain.CapabilityIssuer)
	s.Require().NoError(err)
	s.False(ok)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CapabilityChecks.WithLabelValues("validator", "granted")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CapabilityChecks.WithLabelValues("issuer", "denied")))
}

func (s *RolesServiceSuite) TestGrantIsIdempotentAndAuditedOnce() {
	for i := 0; i < 3; i++ {
		_, err := s.service.Grant(s.ctx, domain.CapabilityIssuer, fixtures.Issuer)
		s.Require().NoError(err)
	}

	events, err := s.auditStore.ListRecent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRoleGranted, events[0].Action)
	s.Equal("issuer", events[0].Capability)
	s.Equal(fixtures.Issuer.String(), events[0].Subject)
	s.Equal("req-roles", events[0].RequestID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RoleChanges.WithLabelValues("issuer", audit.ActionRoleGranted)))
}

func (s *RolesServiceSuite) TestRevokeTakesEffectImmediately() {
	_, err := s.service.Grant(s.ctx, domain.CapabilityValidator, fixtures.Validator2)
	s.Require().NoError(err)

	changed, err := s.service.Revoke(s.ctx, domain.CapabilityValidator, fixtures.Validator2)
	s.Require().NoError(err)
	s.True(changed)

	ok, err := s.service.HasCapability(s.ctx, fixtures.Validator2, domain.CapabilityValidator)
	s.Require().NoError(err)
	s.False(ok)

	changed, err = s.service.Revoke(s.ctx, domain.CapabilityValidator, fixtures.Validator2)
	s.Require().NoError(err)
	s.False(changed)
}

func (s *RolesServiceSuite) TestRejectsBadInput() {
	_, err := s.service.Grant(s.ctx, domain.Capability("admin"), fixtures.Issuer)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.Grant(s.ctx, domain.CapabilityIssuer, domain.Address{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	ok, err := s.service.HasCapability(s.ctx, domain.Address{}, domain.CapabilityIssuer)
	s.Require().NoError(err)
	s.False(ok, "the zero address never holds a capability")
}

func (s *RolesServiceSuite) TestHoldersCountAndSummary() {
	s.Require().NoError(s.service.Bootstrap(s.ctx,
		[]domain.Address{fixtures.Issuer},
		[]domain.Address{fixtures.Validator1, fixtures.Validator2, fixtures.Issuer},
	))
	// Running twice is harmless.
	s.Require().NoError(s.service.Bootstrap(s.ctx, []domain.Address{fixtures.Issuer}, nil))

	holders, err := s.service.Holders(s.ctx, domain.CapabilityValidator)
	s.Require().NoError(err)
	s.Len(holders, 3)

	n, err := s.service.CountHolders(s.ctx, domain.CapabilityValidator)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.Holders.WithLabelValues("validator")))

	sum, err := s.service.Summary(s.ctx, fixtures.Issuer)
	s.Require().NoError(err)
	s.Equal([]domain.Capability{domain.CapabilityIssuer, domain.CapabilityValidator}, sum.Capabilities)
	s.Equal(models.RoleIssuer, sum.PrimaryRole)

	sum, err = s.service.Summary(s.ctx, fixtures.Student)
	s.Require().NoError(err)
	s.Empty(sum.Capabilities)
	s.Equal(models.RoleStudent, sum.PrimaryRole)

	events, err := s.auditStore.ListRecent(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(events, 4)
	s.Equal(models.AuditReasonBootstrap, events[0].Reason)
}

func (s *RolesServiceSuite) TestAuditActorIsCaller() {
	ctx := requestcontext.WithCaller(s.ctx, fixtures.Issuer)
	_, err := s.service.Grant(ctx, domain.CapabilityValidator, fixtures.Validator3)
	s.Require().NoError(err)

	events, err := s.auditStore.ListByActor(s.ctx, fixtures.Issuer)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func TestService_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := New(st, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	boom := errors.New("connection refused")
	ctx := context.Background()

	t.Run("capability check surfaces the raw error", func(t *testing.T) {
		st.EXPECT().Has(gomock.Any(), domain.CapabilityIssuer, fixtures.Issuer).Return(false, boom)
		ok, err := svc.HasCapability(ctx, fixtures.Issuer, domain.CapabilityIssuer)
		if !errors.Is(err, boom) || ok {
			t.Fatalf("expected store error and no capability, got %v %v", ok, err)
		}
	})

	t.Run("grant wraps as internal", func(t *testing.T) {
		st.EXPECT().Add(gomock.Any(), domain.CapabilityIssuer, fixtures.Issuer).Return(false, boom)
		_, err := svc.Grant(ctx, domain.CapabilityIssuer, fixtures.Issuer)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("roles lookup is unavailable", func(t *testing.T) {
		st.EXPECT().Has(gomock.Any(), gomock.Any(), fixtures.Student).Return(false, boom)
		_, err := svc.RolesOf(ctx, fixtures.Student)
		if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
			t.Fatalf("expected unavailable, got %v", err)
		}
	})

	t.Run("audit failures do not fail the grant", func(t *testing.T) {
		pub := mocks.NewMockAuditPublisher(ctrl)
		withAudit := New(st, WithAuditPublisher(pub), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		st.EXPECT().Add(gomock.Any(), domain.CapabilityValidator, fixtures.Validator1).Return(true, nil)
		pub.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(boom)
		changed, err := withAudit.Grant(ctx, domain.CapabilityValidator, fixtures.Validator1)
		if err != nil || !changed {
			t.Fatalf("expected grant to succeed, got %v %v", changed, err)
		}
	})
}

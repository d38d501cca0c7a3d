package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"quorumcred/internal/credential/index"
	"quorumcred/internal/credential/models"
	rolesservice "quorumcred/internal/roles/service"
	rolesstore "quorumcred/internal/roles/store"
	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/testutil"
)

type stubFeed struct {
	head uint64
	err  error
}

func (f stubFeed) LatestSequence(context.Context) (uint64, error) { return f.head, f.err }

type AdminHandlerSuite struct {
	suite.Suite
	ctx        context.Context
	idx        *index.Index
	auditStore *audit.InMemoryStore
	feed       *stubFeed
	router     chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.idx = index.New()
	s.auditStore = audit.NewInMemoryStore(100)
	s.feed = &stubFeed{}

	roles := rolesservice.New(rolesstore.NewInMemory())
	s.Require().NoError(roles.Bootstrap(s.ctx,
		[]domain.Address{testutil.Issuer},
		[]domain.Address{testutil.Validator1, testutil.Validator2},
	))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(NewService(s.feed, s.idx, roles, s.auditStore), logger).Register(s.router)
}

func (s *AdminHandlerSuite) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *AdminHandlerSuite) TestStatsReportIndexLag() {
	s.Require().NoError(s.idx.ApplyAll([]models.Event{
		{
			Sequence:     1,
			Type:         models.EventCredentialCreated,
			CredentialID: 1,
			OccurredAt:   testutil.FixedTime,
			Created: &models.CredentialCreated{
				Student:            testutil.Student,
				Issuer:             testutil.Issuer,
				MetadataRef:        "ipfs://bafkreiadmin",
				RequiredSignatures: 1,
			},
		},
	}))
	s.feed.head = 3
	s.Require().NoError(s.auditStore.Append(s.ctx, audit.Event{Action: audit.ActionSignInFailed, Actor: testutil.Outsider}))

	rec := s.get("/admin/stats")
	s.Require().Equal(http.StatusOK, rec.Code)

	var stats Stats
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&stats))
	s.Equal(1, stats.Credentials)
	s.Equal(1, stats.Pending)
	s.Equal(0, stats.Valid)
	s.Equal(1, stats.Issuers)
	s.Equal(2, stats.Validators)
	s.EqualValues(3, stats.FeedSequence)
	s.EqualValues(1, stats.IndexCursor)
	s.EqualValues(2, stats.IndexLag)
	s.Equal(1, stats.SignInsFailed)
}

func (s *AdminHandlerSuite) TestStatsFailWhenFeedUnreadable() {
	s.feed.err = errors.New("connection refused")

	rec := s.get("/admin/stats")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "connection refused")
}

func (s *AdminHandlerSuite) TestAuditFilters() {
	for _, e := range []audit.Event{
		{Action: audit.ActionRoleGranted, Actor: testutil.Issuer},
		{Action: models.AuditActionCredentialCreated, Actor: testutil.Issuer, CredentialID: 7},
		{Action: models.AuditActionCredentialSigned, Actor: testutil.Validator1, CredentialID: 7},
	} {
		s.Require().NoError(s.auditStore.Append(s.ctx, e))
	}

	decode := func(rec *httptest.ResponseRecorder) AuditEventsResponse {
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var out AuditEventsResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
		return out
	}

	s.Run("recent first", func() {
		out := decode(s.get("/admin/audit?limit=2"))
		s.Require().Len(out.Events, 2)
		s.Equal(models.AuditActionCredentialSigned, out.Events[0].Action)
	})
	s.Run("by actor", func() {
		out := decode(s.get("/admin/audit?actor=" + testutil.Issuer.String()))
		s.Equal(2, out.Total)
	})
	s.Run("by credential", func() {
		out := decode(s.get("/admin/audit?credential=7"))
		s.Equal(2, out.Total)
	})
	s.Run("rejects bad parameters", func() {
		s.Equal(http.StatusBadRequest, s.get("/admin/audit?actor=nope").Code)
		s.Equal(http.StatusBadRequest, s.get("/admin/audit?credential=x").Code)
		s.Equal(http.StatusBadRequest, s.get("/admin/audit?limit=0").Code)
	})
}

package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

// A wrong token must never reach the handler.
type AdminMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AdminMiddlewareSuite) serve(expected string, headers map[string]string) (bool, context.Context, *httptest.ResponseRecorder) {
	var (
		called bool
		seen   context.Context
	)
	handler := RequireAdminToken(expected, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = r.Context()
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPut, "/admin/roles/issuer/0x1", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return called, seen, rec
}

func (s *AdminMiddlewareSuite) TestTokenValidation() {
	s.Run("correct token passes with actor attribution", func() {
		called, ctx, rec := s.serve("secret", map[string]string{
			"X-Admin-Token":    "secret",
			"X-Admin-Actor-ID": "ops-alice",
		})
		s.True(called)
		s.Equal(http.StatusOK, rec.Code)
		s.True(IsAdminRequest(ctx))
		s.Equal("ops-alice", ActorID(ctx))
	})

	s.Run("wrong token returns 401", func() {
		called, _, rec := s.serve("secret", map[string]string{"X-Admin-Token": "guess"})
		s.False(called)
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Contains(rec.Body.String(), "admin token required")
	})

	s.Run("missing token returns 401", func() {
		called, _, rec := s.serve("secret", nil)
		s.False(called)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("unconfigured token disables the routes", func() {
		called, _, rec := s.serve("", map[string]string{"X-Admin-Token": ""})
		s.False(called)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *AdminMiddlewareSuite) TestContextHelpersOnPlainContext() {
	s.False(IsAdminRequest(context.Background()))
	s.Empty(ActorID(context.Background()))
}

package app

import (
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/config"
	"quorumcred/internal/walletauth"
	"quorumcred/pkg/client"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
)

const adminToken = "test-admin-token"

type wallet struct {
	key  *ecdsa.PrivateKey
	addr domain.Address
}

func newWallet(t *testing.T) wallet {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return wallet{key: key, addr: domain.Address(crypto.PubkeyToAddress(key.PublicKey))}
}

func (w wallet) sign(message string) (string, error) {
	return walletauth.SignMessage(message, w.key)
}

type AppSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	app    *App
	srv    *httptest.Server
	done   chan error

	issuer, validator1, validator2, student wallet
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	t := s.T()
	s.issuer, s.validator1, s.validator2, s.student = newWallet(t), newWallet(t), newWallet(t), newWallet(t)

	cfg := config.Server{
		Environment: "test",
		Auth: config.AuthConfig{
			JWTSigningKey: "test-signing-key",
			TokenTTL:      time.Minute,
			ChallengeTTL:  time.Minute,
			AdminToken:    adminToken,
		},
		Registry: config.RegistryConfig{
			SelfSigning:         models.SelfSigningForbid,
			ThresholdPolicy:     models.ThresholdUnbounded,
			FeedPollInterval:    5 * time.Millisecond,
			ReadAwaitTimeout:    2 * time.Second,
			LockTimeout:         time.Second,
			BootstrapIssuers:    []domain.Address{s.issuer.addr},
			BootstrapValidators: []domain.Address{s.validator1.addr, s.validator2.addr},
		},
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	app, err := New(s.ctx, cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.app = app

	s.done = make(chan error, 1)
	go func() { s.done <- app.Run(s.ctx) }()
	s.srv = httptest.NewServer(app.Handler())
}

func (s *AppSuite) TearDownTest() {
	s.srv.Close()
	s.cancel()
	s.NoError(<-s.done)
	s.NoError(s.app.Close())
}

func (s *AppSuite) login(w wallet) *client.Client {
	c := client.New(s.srv.URL, client.WithAdminToken(adminToken, "app-test"))
	_, err := c.Login(s.ctx, w.addr, w.sign)
	s.Require().NoError(err)
	return c
}

func (s *AppSuite) TestIssueAndCoSignOverHTTP() {
	issuer := s.login(s.issuer)
	cred, err := issuer.CreateCredential(s.ctx, client.CreateParams{
		Student:            s.student.addr,
		RequiredSignatures: 2,
		MetadataType:       "btech",
		Description:        "Computer Science",
	})
	s.Require().NoError(err)
	s.Equal(client.StatusPending, cred.Status)

	for _, v := range []wallet{s.validator1, s.validator2} {
		_, err := s.login(v).SignCredential(s.ctx, cred.ID)
		s.Require().NoError(err)
	}

	valid, err := issuer.AwaitValid(s.ctx, cred.ID, 10*time.Millisecond, time.Second)
	s.Require().NoError(err)
	s.Equal(2, valid.SignatureCount)

	page, err := s.login(s.student).MyCredentials(s.ctx, "student", client.ListParams{MinSequence: 3})
	s.Require().NoError(err)
	s.Require().Len(page.Credentials, 1)
	s.Equal(client.StatusValid, page.Credentials[0].Status)
}

func (s *AppSuite) TestAuthenticationBoundaries() {
	anonymous := client.New(s.srv.URL)
	_, err := anonymous.CreateCredential(s.ctx, client.CreateParams{
		Student:            s.student.addr,
		RequiredSignatures: 1,
		MetadataRef:        "ipfs://bafkreiapp",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	_, err = anonymous.GrantRole(s.ctx, domain.CapabilityValidator, s.student.addr)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	change, err := s.login(s.issuer).GrantRole(s.ctx, domain.CapabilityValidator, s.student.addr)
	s.Require().NoError(err)
	s.True(change.Changed)
}

func (s *AppSuite) TestOperationalRoutes() {
	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		resp, err := http.Get(s.srv.URL + path)
		s.Require().NoError(err)
		_ = resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(s.srv.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck // test
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "quorumcred_build_info")
	s.Contains(string(body), "quorumcred_http_responses_total")
}

package e2e

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"quorumcred/internal/app"
	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/config"
	"quorumcred/internal/walletauth"
	"quorumcred/pkg/client"
	"quorumcred/pkg/domain"
)

const operatorToken = "e2e-operator-token"

// wallet is a named participant with its own key and signed-in client.
type wallet struct {
	key    *ecdsa.PrivateKey
	addr   domain.Address
	client *client.Client
}

// TestContext holds state between test steps. Each scenario runs against its
// own in-process registry so credential ids are predictable.
type TestContext struct {
	registry *app.App
	server   *httptest.Server
	cancel   context.CancelFunc
	done     chan error

	wallets     map[string]*wallet
	issuers     []domain.Address
	validators  []domain.Address
	selfSigning models.SelfSigningPolicy

	operator   *client.Client
	credential *client.Credential
	named      map[string]domain.CredentialID
	LastErr    error
}

func NewTestContext() *TestContext {
	return &TestContext{
		wallets:     make(map[string]*wallet),
		named:       make(map[string]domain.CredentialID),
		selfSigning: models.SelfSigningForbid,
	}
}

// wallet returns the named wallet, creating a key on first use.
func (tc *TestContext) wallet(name string) (*wallet, error) {
	if w, ok := tc.wallets[name]; ok {
		return w, nil
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	w := &wallet{key: key, addr: domain.Address(crypto.PubkeyToAddress(key.PublicKey))}
	tc.wallets[name] = w
	return w, nil
}

// start boots the registry on first use, bootstrapping the roles declared by
// earlier steps.
func (tc *TestContext) start() error {
	if tc.registry != nil {
		return nil
	}
	cfg := config.Server{
		Environment: "e2e",
		Auth: config.AuthConfig{
			JWTSigningKey: "e2e-signing-key",
			TokenTTL:      time.Minute,
			ChallengeTTL:  time.Minute,
			AdminToken:    operatorToken,
		},
		Registry: config.RegistryConfig{
			SelfSigning:         tc.selfSigning,
			ThresholdPolicy:     models.ThresholdUnbounded,
			FeedPollInterval:    5 * time.Millisecond,
			ReadAwaitTimeout:    2 * time.Second,
			LockTimeout:         time.Second,
			BootstrapIssuers:    tc.issuers,
			BootstrapValidators: tc.validators,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry, err := app.New(ctx, cfg, app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		cancel()
		return fmt.Errorf("start registry: %w", err)
	}
	tc.registry = registry
	tc.cancel = cancel
	tc.done = make(chan error, 1)
	go func() { tc.done <- registry.Run(ctx) }()
	tc.server = httptest.NewServer(registry.Handler())
	tc.operator = client.New(tc.server.URL, client.WithAdminToken(operatorToken, "e2e"))
	return nil
}

// Close stops the registry started for the scenario.
func (tc *TestContext) Close() error {
	if tc.registry == nil {
		return nil
	}
	tc.server.Close()
	tc.cancel()
	runErr := <-tc.done
	closeErr := tc.registry.Close()
	tc.registry = nil
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// as returns a signed-in client for the named wallet.
func (tc *TestContext) as(ctx context.Context, name string) (*client.Client, error) {
	if err := tc.start(); err != nil {
		return nil, err
	}
	w, err := tc.wallet(name)
	if err != nil {
		return nil, err
	}
	if w.client != nil {
		return w.client, nil
	}
	c := client.New(tc.server.URL)
	if _, err := c.Login(ctx, w.addr, func(msg string) (string, error) {
		return walletauth.SignMessage(msg, w.key)
	}); err != nil {
		return nil, fmt.Errorf("sign in as %s: %w", name, err)
	}
	w.client = c
	return c, nil
}

// latestSequence is the feed head, used to make index reads wait for writes.
func (tc *TestContext) latestSequence(ctx context.Context) (uint64, error) {
	page, err := tc.operator.Events(ctx, 0, 1)
	if err != nil {
		return 0, err
	}
	return page.LatestSequence, nil
}

// Package app turns a config.Server into a running registry: stores,
// services, background workers and the HTTP router. cmd/server and the
// end-to-end tests share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quorumcred/internal/admin"
	credentialhandler "quorumcred/internal/credential/handler"
	"quorumcred/internal/credential/feed"
	"quorumcred/internal/credential/index"
	credentialmetrics "quorumcred/internal/credential/metrics"
	credentialservice "quorumcred/internal/credential/service"
	credentialstore "quorumcred/internal/credential/store"
	metadatahandler "quorumcred/internal/metadata/handler"
	metadataservice "quorumcred/internal/metadata/service"
	metadatastore "quorumcred/internal/metadata/store"
	"quorumcred/internal/platform/config"
	"quorumcred/internal/platform/database"
	"quorumcred/internal/platform/health"
	"quorumcred/internal/platform/kafka"
	"quorumcred/internal/platform/kafka/consumer"
	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/internal/platform/metrics"
	platformredis "quorumcred/internal/platform/redis"
	"quorumcred/internal/platform/tracer"
	roleshandler "quorumcred/internal/roles/handler"
	rolesmetrics "quorumcred/internal/roles/metrics"
	rolesservice "quorumcred/internal/roles/service"
	rolesstore "quorumcred/internal/roles/store"
	"quorumcred/internal/walletauth"
	"quorumcred/migrations"
	"quorumcred/pkg/platform/audit"
	auditpublisher "quorumcred/pkg/platform/audit/publisher"
	"quorumcred/pkg/platform/middleware/request"
)

const (
	auditCapacity   = 10_000
	auditBuffer     = 256
	poolStatsPeriod = 15 * time.Second
	relayName       = "kafka-relay"
)

// App owns every long-lived component of one registry process.
type App struct {
	Config      config.Server
	Logger      *slog.Logger
	Metrics     *metrics.Registry
	Credentials *credentialservice.Service
	Roles       *rolesservice.Service
	Tokens      *walletauth.TokenService
	Index       *index.Index

	handler http.Handler
	workers []worker
	closers []closer
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

type closer struct {
	name  string
	close func() error
}

type options struct {
	logger  *slog.Logger
	tracer  tracer.Tracer
	migrate bool
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMigrations applies the embedded schema before the store is used.
func WithMigrations(enabled bool) Option {
	return func(o *options) { o.migrate = enabled }
}

// New connects the configured backends and builds the router. Backends with
// no URL configured fall back to in-memory implementations. On error every
// connection opened so far is closed.
func New(ctx context.Context, cfg config.Server, opts ...Option) (_ *App, err error) {
	o := options{logger: slog.Default(), tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(health.Version, cfg.Environment),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	healthHandler := health.New(cfg.Environment)
	credMetrics := credentialmetrics.New(a.Metrics)

	auditStore := audit.NewInMemoryStore(auditCapacity)
	auditPub := auditpublisher.New(auditStore,
		auditpublisher.WithAsyncBuffer(auditBuffer),
		auditpublisher.WithLogger(logger),
	)
	a.addCloser("audit", func() error { auditPub.Close(); return nil })

	// Credential store: postgres when configured.
	var credStore credentialservice.Store
	pool, err := database.New(ctx, cfg.Database, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pool != nil {
		a.addCloser("database", pool.Close)
		healthHandler.RegisterCheck("database", pool.Health)
		if o.migrate {
			if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.InfoContext(ctx, "database migrations applied")
		}
		credStore = credentialstore.NewPostgres(pool.DB())
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, credentials are kept in memory")
		credStore = credentialstore.NewInMemory()
	}

	// Redis backs roles, sign-in challenges and the relay cursor.
	redisClient, err := platformredis.New(ctx, cfg.Redis, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	var (
		roleStore  rolesservice.Store
		challenges walletauth.ChallengeStore
		cursors    feed.CursorStore
	)
	if redisClient != nil {
		a.addCloser("redis", redisClient.Close)
		healthHandler.RegisterCheck("redis", redisClient.Health)
		a.addWorker("redis-pool-stats", func(ctx context.Context) error {
			return redisClient.RunPoolStats(ctx, poolStatsPeriod)
		})
		roleStore = rolesstore.NewRedis(redisClient.Client)
		challenges = walletauth.NewRedisChallengeStore(redisClient.Client)
		cursors = feed.NewRedisCursorStore(redisClient.Client)
	} else {
		roleStore = rolesstore.NewInMemory()
		challenges = walletauth.NewInMemoryChallengeStore()
		cursors = feed.NewMemoryCursorStore()
	}

	a.Roles = rolesservice.New(roleStore,
		rolesservice.WithAuditPublisher(auditPub),
		rolesservice.WithMetrics(rolesmetrics.New(a.Metrics)),
		rolesservice.WithLogger(logger),
	)
	if err := a.Roles.Bootstrap(ctx, cfg.Registry.BootstrapIssuers, cfg.Registry.BootstrapValidators); err != nil {
		return nil, fmt.Errorf("bootstrap roles: %w", err)
	}

	var metaStore metadataservice.Store
	if cfg.Metadata.Pinning() {
		metaStore = metadatastore.NewPinning(cfg.Metadata, metadatastore.WithLogger(logger))
	} else {
		metaStore = metadatastore.NewInMemory()
	}
	metadata := metadataservice.New(metaStore,
		metadataservice.WithLogger(logger),
		metadataservice.WithTracer(o.tracer),
	)

	a.Tokens = walletauth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL)
	signIn := walletauth.NewService(challenges, a.Tokens,
		walletauth.WithChallengeTTL(cfg.Auth.ChallengeTTL),
		walletauth.WithAuditPublisher(auditPub),
		walletauth.WithLogger(logger),
	)

	a.Credentials, err = credentialservice.New(credStore, a.Roles, cfg.Registry.SelfSigning,
		credentialservice.WithThresholdPolicy(cfg.Registry.ThresholdPolicy),
		credentialservice.WithValidatorCounter(a.Roles),
		credentialservice.WithLogger(logger),
		credentialservice.WithMetrics(credMetrics),
		credentialservice.WithAuditPublisher(auditPub),
		credentialservice.WithTracer(o.tracer),
		credentialservice.WithLockTimeout(cfg.Registry.LockTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("build credential service: %w", err)
	}

	a.Index = index.New()
	healthHandler.SetIndexCursor(a.Index.Cursor)
	healthHandler.SetFeedHead(a.Credentials.LatestSequence)
	if err := a.wireFeed(cfg, credStore, cursors, metadata, credMetrics, o.tracer, healthHandler); err != nil {
		return nil, err
	}

	admins := admin.NewService(a.Credentials, a.Index, a.Roles, auditStore)
	a.handler = a.router(routes{
		health:      healthHandler,
		signIn:      walletauth.NewHandler(signIn, logger),
		credentials: credentialhandler.New(a.Credentials, a.Index, logger,
			credentialhandler.WithMetadata(metadata, a.Roles),
			credentialhandler.WithAwaitTimeout(cfg.Registry.ReadAwaitTimeout),
		),
		metadata:    metadatahandler.New(metadata, logger),
		roles:       roleshandler.New(a.Roles, logger),
		admin:       admin.New(admins, logger),
		httpMetrics: request.NewMetrics(a.Metrics),
	})

	logger.InfoContext(ctx, "registry assembled",
		"environment", cfg.Environment,
		"postgres", pool != nil,
		"redis", redisClient != nil,
		"kafka", cfg.Kafka.Enabled(),
		"pinning", cfg.Metadata.Pinning(),
		"self_signing", cfg.Registry.SelfSigning,
		"threshold_policy", cfg.Registry.ThresholdPolicy,
	)
	return a, nil
}

// wireFeed chooses how the index is fed. With a Kafka consumer group prefix
// the index follows the topic through a per-process group; otherwise it
// follows the store directly. The relay runs whenever brokers are configured.
func (a *App) wireFeed(cfg config.Server, source feed.Source, cursors feed.CursorStore, labeler feed.Labeler,
	m *credentialmetrics.Metrics, t tracer.Tracer, healthHandler *health.Handler,
) error {
	feedOpts := []feed.Option{
		feed.WithPollInterval(cfg.Registry.FeedPollInterval),
		feed.WithLogger(a.Logger),
		feed.WithMetrics(m),
		feed.WithTracer(t),
	}

	if !cfg.Kafka.Enabled() {
		a.addWorker("feed-follower", feed.NewFollower(source, a.Index, labeler, feedOpts...).Run)
		return nil
	}

	prod, err := producer.New(kafka.ProducerConfig(cfg.Kafka), a.Logger)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	a.addCloser("kafka-producer", prod.Close)
	healthHandler.RegisterCheck("kafka", kafka.NewTopicHealth(prod.Admin(), cfg.Kafka.Topic).Check)
	a.addWorker(relayName, feed.NewRelay(relayName, cfg.Kafka.Topic, source, prod, cursors, feedOpts...).Run)

	if cfg.Kafka.ConsumerGroup == "" {
		a.addWorker("feed-follower", feed.NewFollower(source, a.Index, labeler, feedOpts...).Run)
		return nil
	}
	cons, err := consumer.New(kafka.ConsumerConfig(cfg.Kafka, uuid.NewString()), feed.NewApplier(a.Index, labeler, a.Logger, m), a.Logger)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	a.addCloser("kafka-consumer", func() error { cons.Close(); return nil })
	a.addWorker("feed-consumer", cons.Run)
	return nil
}

func (a *App) addWorker(name string, run func(ctx context.Context) error) {
	a.workers = append(a.workers, worker{name: name, run: run})
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the background workers and blocks until ctx is cancelled or a
// worker fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range a.workers {
		g.Go(func() error {
			a.Logger.InfoContext(ctx, "background worker started", "worker", w.name)
			err := w.run(ctx)
			a.Logger.InfoContext(ctx, "background worker stopped", "worker", w.name, "error", err)
			if err != nil {
				return fmt.Errorf("%s: %w", w.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

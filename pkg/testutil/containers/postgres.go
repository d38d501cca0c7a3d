//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"quorumcred/internal/platform/config"
	"quorumcred/internal/platform/database"
	"quorumcred/migrations"
)

// PostgresContainer is a Postgres instance with the credential schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

func startPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("quorumcred_test"),
		postgres.WithUsername("quorumcred"),
		postgres.WithPassword("quorumcred"),
		testcontainers.WithWaitStrategy(
			// Postgres logs readiness once for the init run and once for the real start.
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*PostgresContainer, error) {
		_ = container.Terminate(context.Background())
		return nil, err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail(fmt.Errorf("connection string: %w", err))
	}
	pool, err := database.New(ctx, config.DatabaseConfig{URL: dsn, MaxOpenConns: 10}, nil)
	if err != nil {
		return fail(err)
	}
	if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
		_ = pool.Close()
		return fail(fmt.Errorf("migrate: %w", err))
	}
	return &PostgresContainer{Container: container, DSN: dsn, DB: pool.DB()}, nil
}

// TruncateCredentials empties the credential tables between tests.
func (p *PostgresContainer) TruncateCredentials(ctx context.Context) error {
	const stmt = "TRUNCATE TABLE credential_events, credential_signatures, credentials CASCADE"
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate credential tables: %w", err)
	}
	return nil
}

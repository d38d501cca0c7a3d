// Package database opens the Postgres pool behind the credential store and
// applies the embedded schema.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"quorumcred/internal/platform/config"
)

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

type Pool struct {
	db *sql.DB
}

// New opens a pool and waits for Postgres to answer, retrying with a doubling
// backoff while it starts up. An empty URL returns nil, nil; the caller then
// keeps credentials in memory. Pool statistics are exported on reg when it is
// non-nil.
func New(ctx context.Context, cfg config.DatabaseConfig, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(ctx, db); err != nil {
		db.Close() //nolint:errcheck // nothing was handed out yet
		return nil, err
	}

	if reg != nil {
		if err := reg.Register(collectors.NewDBStatsCollector(db, "credentials")); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				db.Close() //nolint:errcheck // nothing was handed out yet
				return nil, fmt.Errorf("register pool metrics: %w", err)
			}
		}
	}
	return &Pool{db: db}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	backoff := 250 * time.Millisecond
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("ping database after %d attempts: %w", connectAttempts, err)
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health is the readiness check for the database.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("database not configured")
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
)

// feedLockKey is the pg_advisory_xact_lock key that orders ID and sequence
// allocation. Holding it until commit keeps both gapless and commit-ordered.
const feedLockKey int64 = 0x71636672 // "qcfr"

// PostgresStore persists credentials, signatures and the event feed in
// PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	var stored *models.Credential
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockFeed(ctx, tx); err != nil {
			return err
		}
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM credentials`).Scan(&next); err != nil {
			return fmt.Errorf("allocate credential id: %w", err)
		}

		stored = c.Clone()
		stored.ID = domain.CredentialID(next)
		stored.Signatures = nil
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (id, student, issuer, metadata_ref, required_signatures, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, next, stored.Student.Bytes(), stored.Issuer.Bytes(), string(stored.MetadataRef), stored.RequiredSignatures, stored.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		return appendEvent(ctx, tx, models.NewCreatedEvent(stored))
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *PostgresStore) AddSignature(ctx context.Context, id domain.CredentialID, signer domain.Address, at time.Time) (*models.Credential, bool, error) {
	var (
		updated *models.Credential
		flipped bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Row lock serializes signers of the same credential only.
		c, err := findCredential(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if c.HasSigned(signer) {
			return ErrAlreadySigned
		}
		flipped, err = c.AddSignature(signer, at)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO credential_signatures (credential_id, signer, position, signed_at)
			VALUES ($1, $2, $3, $4)
		`, int64(id), signer.Bytes(), c.SignatureCount(), at)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadySigned
			}
			return fmt.Errorf("insert signature: %w", err)
		}
		if err := lockFeed(ctx, tx); err != nil {
			return err
		}
		updated = c
		return appendEvent(ctx, tx, models.NewSignedEvent(c, signer, at))
	})
	if err != nil {
		return nil, false, err
	}
	return updated, flipped, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return findCredential(ctx, s.db, id, false)
}

func (s *PostgresStore) EventsAfter(ctx context.Context, after uint64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventPage
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, credential_id, event_type, payload, occurred_at
		FROM credential_events
		WHERE sequence > $1
		ORDER BY sequence
		LIMIT $2
	`, int64(after), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			seq, credID int64
			eventType   string
			payload     []byte
			e           models.Event
		)
		if err := rows.Scan(&seq, &credID, &eventType, &payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Sequence = uint64(seq)
		e.CredentialID = domain.CredentialID(credID)
		e.Type = models.EventType(eventType)
		if err := decodePayload(&e, payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) LatestSequence(ctx context.Context) (uint64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM credential_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	return uint64(seq), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func lockFeed(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, feedLockKey); err != nil {
		return fmt.Errorf("lock feed: %w", err)
	}
	return nil
}

// appendEvent must run while the feed lock is held.
func appendEvent(ctx context.Context, tx *sql.Tx, e models.Event) error {
	payload, err := encodePayload(e)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credential_events (sequence, credential_id, event_type, payload, occurred_at)
		SELECT COALESCE(MAX(sequence), 0) + 1, $1, $2, $3, $4 FROM credential_events
	`, int64(e.CredentialID), string(e.Type), payload, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func findCredential(ctx context.Context, q dbExecutor, id domain.CredentialID, forUpdate bool) (*models.Credential, error) {
	query := `
		SELECT id, student, issuer, metadata_ref, required_signatures, created_at
		FROM credentials
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var (
		rawID           int64
		student, issuer []byte
		ref             string
		c               models.Credential
	)
	err := q.QueryRowContext(ctx, query, int64(id)).Scan(&rawID, &student, &issuer, &ref, &c.RequiredSignatures, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	c.ID = domain.CredentialID(rawID)
	c.Student = domain.Address(common.BytesToAddress(student))
	c.Issuer = domain.Address(common.BytesToAddress(issuer))
	c.MetadataRef = domain.MetadataRef(ref)

	rows, err := q.QueryContext(ctx, `
		SELECT signer, signed_at
		FROM credential_signatures
		WHERE credential_id = $1
		ORDER BY position
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			signer []byte
			sig    models.Signature
		)
		if err := rows.Scan(&signer, &sig.SignedAt); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		sig.Signer = domain.Address(common.BytesToAddress(signer))
		c.Signatures = append(c.Signatures, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return &c, nil
}

func encodePayload(e models.Event) ([]byte, error) {
	var v any
	switch e.Type {
	case models.EventCredentialCreated:
		v = e.Created
	case models.EventCredentialSigned:
		v = e.Signed
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Type, err)
	}
	return b, nil
}

func decodePayload(e *models.Event, payload []byte) error {
	var err error
	switch e.Type {
	case models.EventCredentialCreated:
		e.Created = &models.CredentialCreated{}
		err = json.Unmarshal(payload, e.Created)
	case models.EventCredentialSigned:
		e.Signed = &models.CredentialSigned{}
		err = json.Unmarshal(payload, e.Signed)
	default:
		return fmt.Errorf("unknown event type %q at sequence %d", e.Type, e.Sequence)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

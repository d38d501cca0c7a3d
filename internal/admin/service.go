package admin

import (
	"context"
	"fmt"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/audit"
)

// FeedReader reports the head of the credential event feed.
type FeedReader interface {
	LatestSequence(ctx context.Context) (uint64, error)
}

// IndexReader reports the state of the derived index.
type IndexReader interface {
	Cursor() uint64
	Len() int
	CountByStatus(status models.Status) int
}

// RoleCounter counts the current holders of a capability.
type RoleCounter interface {
	CountHolders(ctx context.Context, capability domain.Capability) (int, error)
}

// Service provides operator views of the registry.
type Service struct {
	feed  FeedReader
	index IndexReader
	roles RoleCounter
	audit audit.Store
	now   func() time.Time
}

func NewService(feed FeedReader, index IndexReader, roles RoleCounter, auditStore audit.Store) *Service {
	return &Service{
		feed:  feed,
		index: index,
		roles: roles,
		audit: auditStore,
		now:   time.Now,
	}
}

// Stats summarises the registry. Credential counts come from the index, so
// they trail the feed by IndexLag events.
type Stats struct {
	Credentials   int       `json:"credentials"`
	Pending       int       `json:"pending"`
	Valid         int       `json:"valid"`
	Issuers       int       `json:"issuers"`
	Validators    int       `json:"validators"`
	FeedSequence  uint64    `json:"feed_sequence"`
	IndexCursor   uint64    `json:"index_cursor"`
	IndexLag      uint64    `json:"index_lag"`
	SignInsFailed int       `json:"sign_ins_failed"`
	Timestamp     time.Time `json:"timestamp"`
}

func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	head, err := s.feed.LatestSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("read feed head: %w", err)
	}
	issuers, err := s.roles.CountHolders(ctx, domain.CapabilityIssuer)
	if err != nil {
		return nil, fmt.Errorf("count issuers: %w", err)
	}
	validators, err := s.roles.CountHolders(ctx, domain.CapabilityValidator)
	if err != nil {
		return nil, fmt.Errorf("count validators: %w", err)
	}

	// Audit is best effort; stats still render without it.
	events, err := s.audit.ListRecent(ctx, 0)
	if err != nil {
		events = nil
	}
	failed := 0
	for _, e := range events {
		if e.Action == audit.ActionSignInFailed {
			failed++
		}
	}

	cursor := s.index.Cursor()
	stats := &Stats{
		Credentials:   s.index.Len(),
		Pending:       s.index.CountByStatus(models.StatusPending),
		Valid:         s.index.CountByStatus(models.StatusValid),
		Issuers:       issuers,
		Validators:    validators,
		FeedSequence:  head,
		IndexCursor:   cursor,
		SignInsFailed: failed,
		Timestamp:     s.now(),
	}
	if head > cursor {
		stats.IndexLag = head - cursor
	}
	return stats, nil
}

// AuditFilter selects audit events. Actor takes precedence over Credential.
type AuditFilter struct {
	Actor      *domain.Address
	Credential domain.CredentialID
	Limit      int
}

func (s *Service) AuditEvents(ctx context.Context, f AuditFilter) ([]audit.Event, error) {
	var (
		events []audit.Event
		err    error
	)
	switch {
	case f.Actor != nil:
		events, err = s.audit.ListByActor(ctx, *f.Actor)
	case f.Credential != 0:
		events, err = s.audit.ListByCredential(ctx, f.Credential)
	default:
		return s.audit.ListRecent(ctx, f.Limit)
	}
	if err != nil {
		return nil, err
	}
	if f.Limit > 0 && len(events) > f.Limit {
		events = events[len(events)-f.Limit:]
	}
	return events, nil
}

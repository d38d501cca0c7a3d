package publisher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/requestcontext"
)

// Publisher captures structured audit events. Synchronous by default; with
// WithAsyncBuffer events are queued and persisted by one goroutine.
type Publisher struct {
	store  audit.Store
	events chan audit.Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

// WithLogger sets a logger used for the text audit line and async failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"actor", event.Actor.String(),
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit fills ID, timestamp, request id and client from ctx, writes the text
// audit line, then persists the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Client == "" {
		event.Client = requestcontext.ClientInfo(ctx).Name
	}
	p.logText(ctx, event)

	if p.async {
		select {
		case p.events <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit buffer full, event dropped",
					"action", event.Action,
					"actor", event.Actor.String(),
				)
			}
			return dErrors.New(dErrors.CodeUnavailable, "audit buffer full")
		}
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) ListByActor(ctx context.Context, actor domain.Address) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, actor)
}

func (p *Publisher) ListByCredential(ctx context.Context, id domain.CredentialID) ([]audit.Event, error) {
	return p.store.ListByCredential(ctx, id)
}

func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

func (p *Publisher) logText(ctx context.Context, e audit.Event) {
	if p.logger == nil {
		return
	}
	attrs := []any{
		"log_type", "audit",
		"event", e.Action,
		"actor", e.Actor.String(),
		"request_id", e.RequestID,
	}
	if !e.CredentialID.IsNil() {
		attrs = append(attrs, "credential_id", e.CredentialID.String())
	}
	if e.Subject != "" {
		attrs = append(attrs, "subject", e.Subject)
	}
	if e.Capability != "" {
		attrs = append(attrs, "capability", e.Capability)
	}
	if e.Decision != "" {
		attrs = append(attrs, "decision", e.Decision)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	p.logger.InfoContext(ctx, e.Action, attrs...)
}

// Package feed moves credential events from the store to their consumers:
// the in-process index (Follower), Kafka (Relay) and an index fed from Kafka
// (Applier). Delivery is at-least-once everywhere; the index tolerates
// replays.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"quorumcred/internal/credential/index"
	"quorumcred/internal/credential/metrics"
	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
)

// Source is the ordered event feed, usually the credential store.
type Source interface {
	EventsAfter(ctx context.Context, after uint64, limit int) ([]models.Event, error)
}

// Labeler resolves display labels for a metadata reference so the index can
// support text search. The registry itself never reads metadata.
type Labeler interface {
	Labels(ctx context.Context, ref domain.MetadataRef) (name, description string, err error)
}

const (
	DefaultBatchSize    = 100
	DefaultPollInterval = 200 * time.Millisecond

	HeaderEventType    = "event_type"
	HeaderSequence     = "sequence"
	HeaderCredentialID = "credential_id"
	HeaderMessageID    = "message_id"
)

type settings struct {
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
}

func defaultSettings() settings {
	return settings{
		batchSize: DefaultBatchSize,
		interval:  DefaultPollInterval,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
	}
}

// Option configures a Follower or a Relay.
type Option func(*settings)

func WithBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// Encode renders e as a Kafka message keyed by credential id, so every event
// of one credential lands on one partition in feed order.
func Encode(topic string, e models.Event) (*producer.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %d: %w", e.Sequence, err)
	}
	return &producer.Message{
		Topic: topic,
		Key:   []byte(e.CredentialID.String()),
		Value: value,
		Headers: map[string]string{
			HeaderEventType:    string(e.Type),
			HeaderSequence:     strconv.FormatUint(e.Sequence, 10),
			HeaderCredentialID: e.CredentialID.String(),
			HeaderMessageID:    uuid.NewString(),
		},
	}, nil
}

// Decode parses a message value produced by Encode.
func Decode(value []byte) (models.Event, error) {
	var e models.Event
	if err := json.Unmarshal(value, &e); err != nil {
		return models.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Sequence == 0 || e.CredentialID.IsNil() {
		return models.Event{}, fmt.Errorf("decode event: missing sequence or credential id")
	}
	return e, nil
}

// annotate resolves labels for created events. Failures only cost search
// quality, so they are logged and skipped.
func annotate(ctx context.Context, labeler Labeler, idx *index.Index, events []models.Event, logger *slog.Logger) {
	if labeler == nil {
		return
	}
	for _, e := range events {
		if e.Type != models.EventCredentialCreated || e.Created == nil {
			continue
		}
		name, description, err := labeler.Labels(ctx, e.Created.MetadataRef)
		if err != nil {
			logger.WarnContext(ctx, "metadata labels unavailable",
				"credential_id", e.CredentialID.String(),
				"metadata_ref", e.Created.MetadataRef.String(),
				"error", err,
			)
			continue
		}
		idx.Annotate(e.CredentialID, name, description)
	}
}

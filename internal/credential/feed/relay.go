package feed

import (
	"context"
	"fmt"
	"time"

	"quorumcred/internal/platform/kafka/producer"
	"quorumcred/internal/platform/tracer"
)

// Publisher delivers messages in order and returns once they are acknowledged.
type Publisher interface {
	Produce(ctx context.Context, msgs ...*producer.Message) error
}

// Relay publishes the store feed to Kafka. Progress is saved only after a
// batch is acknowledged, so a crash republishes rather than skips events.
type Relay struct {
	settings
	name      string
	topic     string
	source    Source
	publisher Publisher
	cursors   CursorStore
}

func NewRelay(name, topic string, source Source, publisher Publisher, cursors CursorStore, opts ...Option) *Relay {
	r := &Relay{
		settings:  defaultSettings(),
		name:      name,
		topic:     topic,
		source:    source,
		publisher: publisher,
		cursors:   cursors,
	}
	for _, opt := range opts {
		opt(&r.settings)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for ctx.Err() == nil {
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "feed relay batch failed", "relay", r.name, "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce publishes at most one batch and reports how many events it sent.
func (r *Relay) RunOnce(ctx context.Context) (n int, err error) {
	cursor, err := r.cursors.Load(ctx, r.name)
	if err != nil {
		return 0, err
	}
	ctx, span := r.tracer.Start(ctx, tracer.SpanFeedRelayBatch, tracer.Int64(tracer.AttrCursor, int64(cursor)))
	defer func() { span.End(err) }()

	events, err := r.source.EventsAfter(ctx, cursor, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]*producer.Message, 0, len(events))
	for _, e := range events {
		msg, err := Encode(r.topic, e)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}
	if err := r.publisher.Produce(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish events after %d: %w", cursor, err)
	}

	last := events[len(events)-1].Sequence
	if err := r.cursors.Save(ctx, r.name, last); err != nil {
		return 0, err
	}
	span.SetAttributes(tracer.Int(tracer.AttrBatchSize, len(events)))
	if r.metrics != nil {
		r.metrics.ObserveFeed("relay:"+r.name, last, len(events))
	}
	r.logger.DebugContext(ctx, "feed relay published batch", "relay", r.name, "count", len(events), "cursor", last)
	return len(events), nil
}

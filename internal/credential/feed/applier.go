package feed

import (
	"context"
	"log/slog"
	"strconv"

	"quorumcred/internal/credential/index"
	"quorumcred/internal/credential/metrics"
	"quorumcred/internal/credential/models"
	"quorumcred/internal/platform/kafka/consumer"
)

// Applier is a Kafka handler that folds relayed events into an index.
type Applier struct {
	index   *index.Index
	labeler Labeler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewApplier(idx *index.Index, labeler Labeler, logger *slog.Logger, m *metrics.Metrics) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{index: idx, labeler: labeler, logger: logger, metrics: m}
}

// Handle applies one message. An error leaves the offset uncommitted so the
// consumer redelivers it.
func (a *Applier) Handle(ctx context.Context, msg *consumer.Message) error {
	e, err := Decode(msg.Value)
	if err != nil {
		// A malformed message will never decode; skip it rather than wedge
		// the partition. Its sequence header, when readable, lets the cursor
		// move past it.
		a.logger.ErrorContext(ctx, "dropping undecodable feed message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"sequence", msg.Headers[HeaderSequence],
			"error", err,
		)
		if seq, perr := strconv.ParseUint(msg.Headers[HeaderSequence], 10, 64); perr == nil && seq > 0 {
			a.index.Skip(seq)
		}
		return nil
	}
	if err := a.index.Apply(e); err != nil {
		return err
	}
	annotate(ctx, a.labeler, a.index, []models.Event{e}, a.logger)
	if a.metrics != nil {
		a.metrics.ObserveFeed("kafka", a.index.Cursor(), 1)
	}
	return nil
}

var _ consumer.Handler = (*Applier)(nil)

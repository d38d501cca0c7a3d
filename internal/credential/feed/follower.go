package feed

import (
	"context"
	"time"

	"quorumcred/internal/credential/index"
	"quorumcred/internal/platform/tracer"
)

// Follower replays the store feed into an in-process index.
type Follower struct {
	settings
	source  Source
	index   *index.Index
	labeler Labeler
}

func NewFollower(source Source, idx *index.Index, labeler Labeler, opts ...Option) *Follower {
	f := &Follower{settings: defaultSettings(), source: source, index: idx, labeler: labeler}
	for _, opt := range opts {
		opt(&f.settings)
	}
	return f
}

// Run polls until ctx is cancelled. Each tick drains the feed in batches.
func (f *Follower) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		f.drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (f *Follower) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := f.RunOnce(ctx)
		if err != nil {
			f.logger.ErrorContext(ctx, "feed follower batch failed",
				"cursor", f.index.Cursor(),
				"error", err,
			)
			return
		}
		if n < f.batchSize {
			return
		}
	}
}

// RunOnce applies at most one batch and reports how many events it read.
func (f *Follower) RunOnce(ctx context.Context) (n int, err error) {
	cursor := f.index.Cursor()
	ctx, span := f.tracer.Start(ctx, tracer.SpanFeedFollowerBatch, tracer.Int64(tracer.AttrCursor, int64(cursor)))
	defer func() { span.End(err) }()

	events, err := f.source.EventsAfter(ctx, cursor, f.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	span.SetAttributes(tracer.Int(tracer.AttrBatchSize, len(events)))

	if err := f.index.ApplyAll(events); err != nil {
		return 0, err
	}
	annotate(ctx, f.labeler, f.index, events, f.logger)

	if f.metrics != nil {
		f.metrics.ObserveFeed("follower", f.index.Cursor(), len(events))
	}
	return len(events), nil
}

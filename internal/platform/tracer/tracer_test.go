package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"quorumcred/internal/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := tracer.NewNoop().Start(ctx, tracer.SpanCredentialSign, tracer.String(tracer.AttrCaller, "0xabc"))

	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)
	span.SetAttributes(tracer.Bool(tracer.AttrBecameValid, true))
	span.AddEvent("audit.emitted")
	span.End(errors.New("boom"))
}

func TestOTelTracer_AcceptsAllAttributeKinds(t *testing.T) {
	tr := tracer.NewOTel(noop.NewTracerProvider().Tracer("test"))
	_, span := tr.Start(context.Background(), tracer.SpanCredentialCreate,
		tracer.Int(tracer.AttrThreshold, 3),
		tracer.Int64(tracer.AttrCredentialID, 7),
		tracer.Duration("wait", 1500*time.Millisecond),
	)
	span.End(nil)
}

func TestDurationIsMilliseconds(t *testing.T) {
	assert.Equal(t, int64(1500), tracer.Duration("d", 1500*time.Millisecond).Value)
}

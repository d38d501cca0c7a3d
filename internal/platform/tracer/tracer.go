// Package tracer is a small tracing abstraction over OpenTelemetry so the
// registry, role authority and metadata boundary can emit spans without
// importing OTel APIs directly.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }
func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }
func Int(key string, value int) Attribute { return Attribute{Key: key, Value: int64(value)} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanCredentialCreate  = "credential.create"
	SpanCredentialSign    = "credential.sign"
	SpanCapabilityCheck   = "roles.has_capability"
	SpanMetadataPut       = "metadata.put"
	SpanMetadataGet       = "metadata.get"
	SpanFeedRelayBatch    = "feed.relay_batch"
	SpanFeedFollowerBatch = "feed.follow_batch"
)

// Attribute keys.
const (
	AttrCredentialID   = "credential.id"
	AttrCaller         = "caller"
	AttrCapability     = "capability"
	AttrThreshold      = "credential.required_signatures"
	AttrSignatureCount = "credential.signature_count"
	AttrBecameValid    = "credential.became_valid"
	AttrBatchSize      = "feed.batch_size"
	AttrCursor         = "feed.cursor"
	AttrMetadataRef    = "metadata.ref"
)

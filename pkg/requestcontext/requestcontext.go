// Package requestcontext carries request-scoped values (request id, request
// time, authenticated caller, client metadata) between middleware, handlers
// and services.
package requestcontext

import (
	"context"
	"time"

	"quorumcred/pkg/domain"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	callerKey      struct{}
	clientKey      struct{}
)

// Client describes the calling software as seen by the metadata middleware.
type Client struct {
	IP        string
	UserAgent string
	// Name is a display form such as "Firefox on Linux" or "credctl".
	Name string
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id or "" outside HTTP requests.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithTime pins the request-scoped clock. Workers and tests use it to get a
// consistent timestamp across one unit of work.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithCaller stores the authenticated wallet address.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// Caller returns the authenticated address and whether one was set.
func Caller(ctx context.Context) (domain.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(domain.Address)
	if !ok || addr.IsZero() {
		return domain.Address{}, false
	}
	return addr, true
}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func ClientInfo(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

func ClientIP(ctx context.Context) string {
	return ClientInfo(ctx).IP
}

package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/requestcontext"
)

type contextKeyAdmin struct{}

// AdminActor is the operator attribution carried on admin requests.
type AdminActor struct {
	ID string
}

// IsAdminRequest reports whether the admin token middleware admitted ctx.
func IsAdminRequest(ctx context.Context) bool {
	_, ok := ctx.Value(contextKeyAdmin{}).(AdminActor)
	return ok
}

// ActorID returns the X-Admin-Actor-ID supplied with an admin request, if any.
func ActorID(ctx context.Context) string {
	a, _ := ctx.Value(contextKeyAdmin{}).(AdminActor)
	return a.ID
}

// RequireAdminToken guards operator routes with a shared secret in
// X-Admin-Token. An empty expected token disables the routes entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "admin token required"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyAdmin{}, AdminActor{ID: r.Header.Get("X-Admin-Actor-ID")})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

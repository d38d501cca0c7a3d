package request

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/requestcontext"
)

// Recovery turns a handler panic into a 500 with the internal error body. The
// panic value stays in the log. http.ErrAbortHandler is re-raised so net/http
// can drop the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				ctx := r.Context()
				logger.ErrorContext(ctx, "panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				if !sw.written {
					httputil.WriteError(sw, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quorumcred/internal/admin"
	credentialhandler "quorumcred/internal/credential/handler"
	metadatahandler "quorumcred/internal/metadata/handler"
	"quorumcred/internal/platform/health"
	roleshandler "quorumcred/internal/roles/handler"
	"quorumcred/internal/walletauth"
	adminmw "quorumcred/pkg/platform/middleware/admin"
	authmw "quorumcred/pkg/platform/middleware/auth"
	metadatamw "quorumcred/pkg/platform/middleware/metadata"
	"quorumcred/pkg/platform/middleware/request"
)

// requestTimeout bounds every request, including index waits.
const requestTimeout = 30 * time.Second

type routes struct {
	health      *health.Handler
	signIn      *walletauth.Handler
	credentials *credentialhandler.Handler
	metadata    *metadatahandler.Handler
	roles       *roleshandler.Handler
	admin       *admin.Handler
	httpMetrics *request.Metrics
}

// router mounts public routes, wallet routes behind a bearer token and
// operator routes behind the admin token.
func (a *App) router(h routes) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(metadatamw.NewMiddleware(&metadatamw.Config{TrustedProxies: a.Config.TrustedProxies}).Handler)
	r.Use(request.Recovery(a.Logger))
	r.Use(request.Logger(a.Logger))
	r.Use(request.LatencyMiddleware(h.httpMetrics))
	r.Use(request.Timeout(requestTimeout))
	r.Use(request.BodyLimit(request.DefaultBodyLimit))
	r.Use(request.ContentTypeJSON)

	h.health.Register(r)
	r.Handle("/metrics", a.Metrics.Handler())

	h.signIn.Register(r)
	h.credentials.Register(r)
	h.metadata.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(a.Tokens, a.Logger))
		h.credentials.RegisterAuthenticated(r)
		h.metadata.RegisterAuthenticated(r)
		h.roles.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(a.Config.Auth.AdminToken, a.Logger))
		h.roles.RegisterAdmin(r)
		h.admin.Register(r)
	})

	return r
}

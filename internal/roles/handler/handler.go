package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorumcred/internal/roles/models"
	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/platform/middleware/admin"
	"quorumcred/pkg/requestcontext"
)

// Service is the role authority as seen by HTTP.
type Service interface {
	Grant(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error)
	Revoke(ctx context.Context, capability domain.Capability, addr domain.Address) (bool, error)
	Holders(ctx context.Context, capability domain.Capability) ([]domain.Address, error)
	Summary(ctx context.Context, addr domain.Address) (*models.Summary, error)
}

type Handler struct {
	roles  Service
	logger *slog.Logger
}

func New(roles Service, logger *slog.Logger) *Handler {
	return &Handler{roles: roles, logger: logger}
}

// RegisterAdmin mounts the operator routes. The caller guards them with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/admin/roles/{capability}/{address}", h.handleGrant)
	r.Delete("/admin/roles/{capability}/{address}", h.handleRevoke)
	r.Get("/admin/roles/{capability}", h.handleHolders)
}

// Register mounts the routes for signed-in wallets.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/roles", h.handleMyRoles)
}

// RoleChangeResponse reports the membership after a grant or revoke.
// Changed is false when the request repeated the current state.
type RoleChangeResponse struct {
	Capability domain.Capability `json:"capability"`
	Address    domain.Address    `json:"address"`
	Held       bool              `json:"held"`
	Changed    bool              `json:"changed"`
}

type HoldersResponse struct {
	Capability domain.Capability `json:"capability"`
	Holders    []domain.Address  `json:"holders"`
	Count      int               `json:"count"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, true)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.handleChange(w, r, false)
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request, grant bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	capability, addr, err := parseTarget(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	change := h.roles.Revoke
	if grant {
		change = h.roles.Grant
	}
	changed, err := change(ctx, capability, addr)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to change role",
			"request_id", requestID,
			"capability", capability.String(),
			"address", addr.String(),
			"grant", grant,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if changed {
		h.logger.InfoContext(ctx, "role change requested by operator",
			"request_id", requestID,
			"admin_actor", admin.ActorID(ctx),
			"capability", capability.String(),
			"address", addr.String(),
			"grant", grant,
		)
	}

	httputil.WriteJSON(w, http.StatusOK, &RoleChangeResponse{
		Capability: capability,
		Address:    addr,
		Held:       grant,
		Changed:    changed,
	})
}

func (h *Handler) handleHolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	capability, err := domain.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holders, err := h.roles.Holders(ctx, capability)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list role holders",
			"request_id", requestcontext.RequestID(ctx),
			"capability", capability.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &HoldersResponse{Capability: capability, Holders: holders, Count: len(holders)})
}

func (h *Handler) handleMyRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.roles.Summary(ctx, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve roles",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func parseTarget(r *http.Request) (domain.Capability, domain.Address, error) {
	capability, err := domain.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		return "", domain.Address{}, err
	}
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		return "", domain.Address{}, err
	}
	return capability, addr, nil
}

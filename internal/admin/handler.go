// Package admin serves operator views of the registry: aggregate stats and
// the audit trail. Routes are mounted behind the admin token middleware.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/audit"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// Handler handles admin monitoring endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func New(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/stats", h.HandleGetStats)
	r.Get("/admin/audit", h.HandleGetAuditEvents)
}

// AuditEventsResponse lists audit events, newest first when unfiltered.
type AuditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	stats, err := h.service.GetStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get stats",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get stats"))
		return
	}

	h.logger.InfoContext(ctx, "admin stats retrieved",
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleGetAuditEvents accepts actor, credential and limit query parameters.
func (h *Handler) HandleGetAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := parseAuditFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.AuditEvents(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get audit events",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	h.logger.InfoContext(ctx, "admin audit events retrieved",
		"request_id", requestID,
		"count", len(events),
	)
	httputil.WriteJSON(w, http.StatusOK, AuditEventsResponse{Events: events, Total: len(events)})
}

func parseAuditFilter(r *http.Request) (AuditFilter, error) {
	q := r.URL.Query()
	filter := AuditFilter{Limit: defaultAuditLimit}

	limit, err := httputil.QueryUint(r, "limit", defaultAuditLimit)
	if err != nil {
		return filter, err
	}
	if limit == 0 {
		return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be at least 1")
	}
	filter.Limit = int(min(limit, maxAuditLimit))

	if raw := q.Get("actor"); raw != "" {
		actor, err := domain.ParseAddress(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid actor address")
		}
		filter.Actor = &actor
	}
	if raw := q.Get("credential"); raw != "" {
		id, err := domain.ParseCredentialID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid credential id")
		}
		filter.Credential = id
	}
	return filter, nil
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quorumcred/internal/metadata/models"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/platform/validation"
	"quorumcred/pkg/requestcontext"
)

type Service interface {
	Types() []models.CredentialType
	Publish(ctx context.Context, doc *models.Document) (domain.MetadataRef, error)
	PublishType(ctx context.Context, typeValue, description string) (domain.MetadataRef, *models.Document, error)
	Resolve(ctx context.Context, ref domain.MetadataRef) (*models.Document, error)
}

type Handler struct {
	metadata Service
	logger   *slog.Logger
}

func New(metadata Service, logger *slog.Logger) *Handler {
	return &Handler{metadata: metadata, logger: logger}
}

// Register mounts the public read routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/metadata", h.handleGet)
	r.Get("/metadata/types", h.handleTypes)
}

// RegisterAuthenticated mounts routes that need a signed-in wallet.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/metadata", h.handlePublish)
}

// PublishRequest carries either a catalog type and description, or a full
// document.
type PublishRequest struct {
	Type        string           `json:"type,omitempty" validate:"max=32"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
	Document    *models.Document `json:"document,omitempty"`
}

func (r *PublishRequest) Normalize() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Description = strings.TrimSpace(r.Description)
}

func (r *PublishRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if (r.Type == "") == (r.Document == nil) {
		return dErrors.New(dErrors.CodeInvalidArgument, "exactly one of type or document is required")
	}
	return nil
}

type PublishResponse struct {
	MetadataRef domain.MetadataRef `json:"metadata_ref"`
	Document    *models.Document   `json:"document"`
}

type TypesResponse struct {
	Types []models.CredentialType `json:"types"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PublishRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	var (
		ref domain.MetadataRef
		doc = req.Document
		err error
	)
	if doc != nil {
		ref, err = h.metadata.Publish(ctx, doc)
	} else {
		ref, doc, err = h.metadata.PublishType(ctx, req.Type, req.Description)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to publish metadata",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &PublishResponse{MetadataRef: ref, Document: doc})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref, err := domain.ParseMetadataRef(r.URL.Query().Get("ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.metadata.Resolve(ctx, ref)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to resolve metadata",
				"request_id", requestcontext.RequestID(ctx),
				"metadata_ref", ref.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &PublishResponse{MetadataRef: ref, Document: doc})
}

func (h *Handler) handleTypes(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &TypesResponse{Types: h.metadata.Types()})
}

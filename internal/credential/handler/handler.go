// Package handler exposes the credential registry and its derived index over
// HTTP. Point reads go to the registry and are always current; list routes read
// the index and accept min_sequence to wait for a caller's own writes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quorumcred/internal/credential/models"
	"quorumcred/internal/credential/service"
	metadatamodels "quorumcred/internal/metadata/models"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/requestcontext"
)

const (
	defaultEventPage    = 100
	maxEventPage        = 1000
	defaultAwaitTimeout = 3 * time.Second
)

// Registry is the credential state machine.
type Registry interface {
	CreateCredential(ctx context.Context, caller domain.Address, cmd service.CreateCommand) (*models.Credential, error)
	SignCredential(ctx context.Context, caller domain.Address, id domain.CredentialID) (*models.Credential, error)
	GetCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	GetSignatureCount(ctx context.Context, id domain.CredentialID) (int, error)
	IsCredentialValid(ctx context.Context, id domain.CredentialID) (bool, error)
	Events(ctx context.Context, after uint64, limit int) ([]models.Event, error)
	LatestSequence(ctx context.Context) (uint64, error)
}

// Index is the eventually consistent read side.
type Index interface {
	Get(id domain.CredentialID) (models.View, bool)
	Search(q models.Query) []models.View
	WaitFor(ctx context.Context, seq uint64, timeout time.Duration) error
	Cursor() uint64
}

// MetadataPublisher stores the document for a catalog credential type.
type MetadataPublisher interface {
	PublishType(ctx context.Context, typeValue, description string) (domain.MetadataRef, *metadatamodels.Document, error)
}

// RoleChecker lets issuance refuse non-issuers before any metadata is published.
type RoleChecker interface {
	HasCapability(ctx context.Context, addr domain.Address, capability domain.Capability) (bool, error)
}

type Handler struct {
	registry     Registry
	index        Index
	metadata     MetadataPublisher
	roles        RoleChecker
	awaitTimeout time.Duration
	logger       *slog.Logger
}

type Option func(*Handler)

// WithMetadata enables issuance from a catalog type instead of a ref.
func WithMetadata(publisher MetadataPublisher, roles RoleChecker) Option {
	return func(h *Handler) {
		h.metadata = publisher
		h.roles = roles
	}
}

// WithAwaitTimeout bounds how long list routes wait for min_sequence.
func WithAwaitTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.awaitTimeout = d
		}
	}
}

func New(registry Registry, index Index, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry:     registry,
		index:        index,
		awaitTimeout: defaultAwaitTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public read routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credentials", h.handleList)
	r.Get("/credentials/{id}", h.handleGet)
	r.Get("/credentials/{id}/signature-count", h.handleSignatureCount)
	r.Get("/credentials/{id}/validity", h.handleValidity)
	r.Get("/students/{address}/credentials", h.handleStudentCredentials)
	r.Get("/events", h.handleEvents)
}

// RegisterAuthenticated mounts the routes that act as the signed-in wallet.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/credentials", h.handleCreate)
	r.Post("/credentials/{id}/signatures", h.handleSign)
	r.Get("/me/credentials", h.handleMyCredentials)
	r.Get("/me/pending-signatures", h.handlePendingSignatures)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	ref := domain.MetadataRef(req.MetadataRef)
	if req.Metadata != nil {
		ref, err = h.publishMetadata(ctx, caller, req)
		if err != nil {
			h.logger.WarnContext(ctx, "metadata not published for issuance",
				"request_id", requestID,
				"caller", caller.String(),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
	}

	cred, err := h.registry.CreateCredential(ctx, caller, service.CreateCommand{
		Student:            req.StudentAddress(),
		MetadataRef:        ref,
		RequiredSignatures: req.RequiredSignatures,
	})
	if err != nil {
		h.logMutationError(ctx, "failed to create credential", caller, 0, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(cred, h.feedHead(ctx)))
}

// publishMetadata checks the issuer capability first so non-issuers cannot
// pin content, then the issuance arguments so a doomed request pins nothing.
// The registry repeats both checks when the credential is created.
func (h *Handler) publishMetadata(ctx context.Context, caller domain.Address, req *CreateRequest) (domain.MetadataRef, error) {
	if h.metadata == nil || h.roles == nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "metadata publishing is not enabled; send metadata_ref")
	}
	isIssuer, err := h.roles.HasCapability(ctx, caller, domain.CapabilityIssuer)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "role authority unavailable")
	}
	if !isIssuer {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller lacks the issuer capability")
	}
	if req.RequiredSignatures < 1 {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "required signatures must be at least 1")
	}
	if req.StudentAddress().IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "student address required")
	}
	ref, _, err := h.metadata.PublishType(ctx, req.Metadata.Type, req.Metadata.Description)
	return ref, err
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := httputil.RequireCaller(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.registry.SignCredential(ctx, caller, id)
	if err != nil {
		h.logMutationError(ctx, "failed to sign credential", caller, id, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred, h.feedHead(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cred, err := h.registry.GetCredential(ctx, id)
	if err != nil {
		h.logReadError(ctx, "failed to get credential", err)
		httputil.WriteError(w, err)
		return
	}
	resp := toCredentialResponse(cred, 0)
	if view, ok := h.index.Get(id); ok {
		resp.Name = view.Name
		resp.Description = view.Description
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSignatureCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	count, err := h.registry.GetSignatureCount(ctx, id)
	if err != nil {
		h.logReadError(ctx, "failed to count signatures", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &SignatureCountResponse{ID: id, SignatureCount: count})
}

func (h *Handler) handleValidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	valid, err := h.registry.IsCredentialValid(ctx, id)
	if err != nil {
		h.logReadError(ctx, "failed to check validity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ValidityResponse{ID: id, Valid: valid})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := parseQuery(r, p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.search(w, r, p, q)
}

func (h *Handler) handleStudentCredentials(w http.ResponseWriter, r *http.Request) {
	student, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.search(w, r, p, models.Query{Student: &student, AfterID: p.after, Limit: p.limit})
}

// handleMyCredentials lists what the caller holds as a student and, with
// ?role=issuer, what they issued.
func (h *Handler) handleMyCredentials(w http.ResponseWriter, r *http.Request) {
	caller, err := httputil.RequireCaller(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := models.Query{AfterID: p.after, Limit: p.limit}
	switch r.URL.Query().Get("role") {
	case "", "student":
		q.Student = &caller
	case "issuer":
		q.Issuer = &caller
	case "validator":
		q.SignedBy = &caller
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "role must be one of [student issuer validator]"))
		return
	}
	h.search(w, r, p, q)
}

// handlePendingSignatures is the validator work queue: pending credentials the
// caller has not signed yet.
func (h *Handler) handlePendingSignatures(w http.ResponseWriter, r *http.Request) {
	caller, err := httputil.RequireCaller(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pending := models.StatusPending
	h.search(w, r, p, models.Query{Status: &pending, NotSignedBy: &caller, AfterID: p.after, Limit: p.limit})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, p page, q models.Query) {
	ctx := r.Context()
	if err := h.index.WaitFor(ctx, p.minSequence, h.awaitTimeout); err != nil {
		h.logger.WarnContext(ctx, "index did not reach requested sequence",
			"request_id", requestcontext.RequestID(ctx),
			"min_sequence", p.minSequence,
			"index_cursor", h.index.Cursor(),
		)
		httputil.WriteError(w, err)
		return
	}
	views := h.index.Search(q)
	httputil.WriteJSON(w, http.StatusOK, toListResponse(views, p.limit, h.index.Cursor()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	after, err := httputil.QueryUint(r, "after", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultEventPage, maxEventPage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.registry.Events(ctx, after, limit)
	if err != nil {
		h.logReadError(ctx, "failed to read events", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, &EventsResponse{Events: events, LatestSequence: h.feedHead(ctx)})
}

// feedHead is a best effort hint; a failure only omits it from the response.
func (h *Handler) feedHead(ctx context.Context) uint64 {
	seq, err := h.registry.LatestSequence(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read feed head",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return 0
	}
	return seq
}

// logMutationError logs rejected mutations at warn and failures at error.
func (h *Handler) logMutationError(ctx context.Context, msg string, caller domain.Address, id domain.CredentialID, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"caller", caller.String(),
		"error", err,
	}
	if !id.IsNil() {
		attrs = append(attrs, "credential_id", id.String())
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}

func (h *Handler) logReadError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

package walletauth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quorumcred/pkg/domain"
	"quorumcred/pkg/platform/httputil"
	"quorumcred/pkg/platform/validation"
	"quorumcred/pkg/requestcontext"
)

// SignInService is what the handler needs from Service.
type SignInService interface {
	Challenge(ctx context.Context, addr domain.Address) (*Challenge, error)
	SignIn(ctx context.Context, addr domain.Address, signature string) (*Token, error)
}

type Handler struct {
	service SignInService
	logger  *slog.Logger
}

func NewHandler(service SignInService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/challenge", h.handleChallenge)
	r.Post("/auth/token", h.handleToken)
}

type ChallengeRequest struct {
	Address string `json:"address" validate:"required,address"`
}

func (r *ChallengeRequest) Normalize() { r.Address = strings.TrimSpace(r.Address) }
func (r *ChallengeRequest) Validate() error { return validation.Validate(r) }

type TokenRequest struct {
	Address   string `json:"address" validate:"required,address"`
	Signature string `json:"signature" validate:"required,startswith=0x,len=132"`
}

func (r *TokenRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
	r.Signature = strings.TrimSpace(r.Signature)
}

func (r *TokenRequest) Validate() error { return validation.Validate(r) }

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ChallengeRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Challenge(ctx, addr)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue challenge", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[TokenRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	addr, err := domain.ParseAddress(req.Address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.service.SignIn(ctx, addr, req.Signature)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

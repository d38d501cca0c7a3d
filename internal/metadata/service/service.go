// Package service publishes and resolves credential metadata documents. The
// credential registry never calls it; only issuance and the read views do.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"quorumcred/internal/metadata/models"
	"quorumcred/internal/metadata/store"
	"quorumcred/internal/platform/tracer"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/validation"
	"quorumcred/pkg/requestcontext"
)

// Store is the content-addressed blob store.
type Store interface {
	Put(ctx context.Context, blob []byte) (domain.MetadataRef, error)
	Get(ctx context.Context, ref domain.MetadataRef) ([]byte, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

type Service struct {
	store  Store
	logger *slog.Logger
	tracer tracer.Tracer
}

func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default(), tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Types returns the issuance catalog.
func (s *Service) Types() []models.CredentialType {
	return models.Catalog
}

// Publish validates and stores doc, returning its reference.
func (s *Service) Publish(ctx context.Context, doc *models.Document) (ref domain.MetadataRef, err error) {
	if err := validation.Validate(doc); err != nil {
		return "", err
	}
	blob, err := json.Marshal(doc)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode metadata")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanMetadataPut)
	defer func() { span.End(err) }()

	ref, err = s.store.Put(ctx, blob)
	if err != nil {
		return "", translateStoreError(err)
	}
	span.SetAttributes(tracer.String(tracer.AttrMetadataRef, ref.String()))
	s.logger.InfoContext(ctx, "metadata published",
		"metadata_ref", ref.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return ref, nil
}

// PublishType builds the document for a catalog type, stamped with the
// request time, and publishes it.
func (s *Service) PublishType(ctx context.Context, typeValue, description string) (domain.MetadataRef, *models.Document, error) {
	doc, err := models.NewDocument(typeValue, description, requestcontext.Now(ctx))
	if err != nil {
		return "", nil, err
	}
	ref, err := s.Publish(ctx, doc)
	if err != nil {
		return "", nil, err
	}
	return ref, doc, nil
}

// Resolve fetches and decodes the document behind ref.
func (s *Service) Resolve(ctx context.Context, ref domain.MetadataRef) (doc *models.Document, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanMetadataGet, tracer.String(tracer.AttrMetadataRef, ref.String()))
	defer func() { span.End(err) }()

	blob, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, translateStoreError(err)
	}
	doc = &models.Document{}
	if err := json.Unmarshal(blob, doc); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metadata is not a credential document")
	}
	return doc, nil
}

// Labels returns the name and description used for credential search.
func (s *Service) Labels(ctx context.Context, ref domain.MetadataRef) (string, string, error) {
	doc, err := s.Resolve(ctx, ref)
	if err != nil {
		return "", "", err
	}
	return doc.Name, doc.Description, nil
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "metadata not found")
	case errors.Is(err, store.ErrInvalidRef):
		return dErrors.New(dErrors.CodeBadRequest, "invalid metadata reference")
	case errors.Is(err, store.ErrIntegrity):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "metadata failed its integrity check")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "metadata store unavailable")
}

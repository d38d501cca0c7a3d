package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"quorumcred/internal/metadata/models"
	"quorumcred/internal/metadata/store"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/requestcontext"
	"quorumcred/pkg/testutil"
)

type MetadataServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	ctx     context.Context
}

func TestMetadataServiceSuite(t *testing.T) {
	suite.Run(t, new(MetadataServiceSuite))
}

func (s *MetadataServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
}

func (s *MetadataServiceSuite) TestPublishTypeAndResolve() {
	ref, doc, err := s.service.PublishType(s.ctx, "driving", "Class B")
	s.Require().NoError(err)
	s.Equal("Driving License", doc.Name)
	s.True(doc.Attributes.IssueDate.Equal(testutil.FixedTime))

	got, err := s.service.Resolve(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(doc.Name, got.Name)
	s.Equal("license", got.Attributes.Template)

	name, desc, err := s.service.Labels(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal("Driving License", name)
	s.Equal("Class B", desc)
}

func (s *MetadataServiceSuite) TestPublishIsContentAddressed() {
	doc := &models.Document{Name: "Achievement Award", Description: "Hackathon"}
	ref1, err := s.service.Publish(s.ctx, doc)
	s.Require().NoError(err)
	ref2, err := s.service.Publish(s.ctx, doc)
	s.Require().NoError(err)
	s.Equal(ref1, ref2)
}

func (s *MetadataServiceSuite) TestPublishValidates() {
	_, err := s.service.Publish(s.ctx, &models.Document{Name: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	_, _, err = s.service.PublishType(s.ctx, "phd", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *MetadataServiceSuite) TestResolveErrors() {
	missing, _ := store.RefFor([]byte(`{"name":"nobody"}`))
	_, err := s.service.Resolve(s.ctx, missing)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Resolve(s.ctx, domain.MetadataRef("ipfs://garbage"))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	notDoc, err := s.store.Put(s.ctx, []byte(`[1,2,3]`))
	s.Require().NoError(err)
	_, err = s.service.Resolve(s.ctx, notDoc)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

type brokenStore struct{}

func (brokenStore) Put(context.Context, []byte) (domain.MetadataRef, error) {
	return "", errors.New("dial tcp: connection refused")
}

func (brokenStore) Get(context.Context, domain.MetadataRef) ([]byte, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (s *MetadataServiceSuite) TestInfrastructureFailuresAreUnavailable() {
	svc := New(brokenStore{})
	_, err := svc.Publish(s.ctx, &models.Document{Name: "x"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

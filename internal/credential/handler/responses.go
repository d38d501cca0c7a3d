package handler

import (
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
)

// CredentialResponse is a credential with its derived status. Sequence is
// the feed position the caller can pass as min_sequence to read its own write
// from the list endpoints.
type CredentialResponse struct {
	ID                 domain.CredentialID `json:"id"`
	Student            domain.Address      `json:"student"`
	Issuer             domain.Address      `json:"issuer"`
	MetadataRef        domain.MetadataRef  `json:"metadata_ref"`
	RequiredSignatures int                 `json:"required_signatures"`
	SignatureCount     int                 `json:"signature_count"`
	Status             models.Status       `json:"status"`
	Signatures         []models.Signature  `json:"signatures"`
	CreatedAt          time.Time           `json:"created_at"`
	Name               string              `json:"name,omitempty"`
	Description        string              `json:"description,omitempty"`
	Sequence           uint64              `json:"sequence,omitempty"`
}

type SignatureCountResponse struct {
	ID             domain.CredentialID `json:"id"`
	SignatureCount int                 `json:"signature_count"`
}

type ValidityResponse struct {
	ID    domain.CredentialID `json:"id"`
	Valid bool                `json:"valid"`
}

// ListResponse is one page of index results. NextAfter is set when the page
// is full and more results may follow.
type ListResponse struct {
	Credentials []*CredentialResponse `json:"credentials"`
	NextAfter   domain.CredentialID   `json:"next_after,omitempty"`
	IndexCursor uint64                `json:"index_cursor"`
}

type EventsResponse struct {
	Events         []models.Event `json:"events"`
	LatestSequence uint64         `json:"latest_sequence"`
}

func toCredentialResponse(c *models.Credential, seq uint64) *CredentialResponse {
	signatures := c.Signatures
	if signatures == nil {
		signatures = []models.Signature{}
	}
	return &CredentialResponse{
		ID:                 c.ID,
		Student:            c.Student,
		Issuer:             c.Issuer,
		MetadataRef:        c.MetadataRef,
		RequiredSignatures: c.RequiredSignatures,
		SignatureCount:     c.SignatureCount(),
		Status:             c.Status(),
		Signatures:         signatures,
		CreatedAt:          c.CreatedAt,
		Sequence:           seq,
	}
}

func toListResponse(views []models.View, limit int, cursor uint64) *ListResponse {
	out := &ListResponse{
		Credentials: make([]*CredentialResponse, 0, len(views)),
		IndexCursor: cursor,
	}
	for i := range views {
		resp := toCredentialResponse(&views[i].Credential, 0)
		resp.Name = views[i].Name
		resp.Description = views[i].Description
		out.Credentials = append(out.Credentials, resp)
	}
	if n := len(views); n > 0 && n == limit {
		out.NextAfter = views[n-1].ID
	}
	return out
}

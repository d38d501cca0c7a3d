package client

import (
	"net/url"
	"strconv"
	"time"

	"quorumcred/pkg/domain"
)

const (
	StatusPending = "pending"
	StatusValid   = "valid"
)

type Challenge struct {
	Address   domain.Address `json:"address"`
	Nonce     string         `json:"nonce"`
	Message   string         `json:"message"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type Token struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Address     domain.Address `json:"address"`
}

type Signature struct {
	Signer   domain.Address `json:"signer"`
	SignedAt time.Time      `json:"signed_at"`
}

type Credential struct {
	ID                 domain.CredentialID `json:"id"`
	Student            domain.Address      `json:"student"`
	Issuer             domain.Address      `json:"issuer"`
	MetadataRef        domain.MetadataRef  `json:"metadata_ref"`
	RequiredSignatures int                 `json:"required_signatures"`
	SignatureCount     int                 `json:"signature_count"`
	Status             string              `json:"status"`
	Signatures         []Signature         `json:"signatures"`
	CreatedAt          time.Time           `json:"created_at"`
	Name               string              `json:"name,omitempty"`
	Description        string              `json:"description,omitempty"`
	Sequence           uint64              `json:"sequence,omitempty"`
}

type CredentialPage struct {
	Credentials []*Credential       `json:"credentials"`
	NextAfter   domain.CredentialID `json:"next_after,omitempty"`
	IndexCursor uint64              `json:"index_cursor"`
}

// CreateParams issues a credential from either MetadataRef or a catalog
// MetadataType with Description.
type CreateParams struct {
	Student            domain.Address
	RequiredSignatures int
	MetadataRef        domain.MetadataRef
	MetadataType       string
	Description        string
}

// ListParams filters index queries. MinSequence makes the server wait until
// the index has caught up with that feed position.
type ListParams struct {
	Student     *domain.Address
	Issuer      *domain.Address
	SignedBy    *domain.Address
	Status      string
	Search      string
	Role        string
	After       domain.CredentialID
	Limit       int
	MinSequence uint64
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	setAddr := func(key string, a *domain.Address) {
		if a != nil {
			q.Set(key, a.String())
		}
	}
	setAddr("student", p.Student)
	setAddr("issuer", p.Issuer)
	setAddr("signed_by", p.SignedBy)
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Role != "" {
		q.Set("role", p.Role)
	}
	if p.After != 0 {
		q.Set("after", p.After.String())
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.MinSequence > 0 {
		q.Set("min_sequence", strconv.FormatUint(p.MinSequence, 10))
	}
	return q
}

type Event struct {
	Sequence     uint64              `json:"sequence"`
	Type         string              `json:"type"`
	CredentialID domain.CredentialID `json:"credential_id"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

type EventPage struct {
	Events         []Event `json:"events"`
	LatestSequence uint64  `json:"latest_sequence"`
}

type RoleChange struct {
	Capability domain.Capability `json:"capability"`
	Address    domain.Address    `json:"address"`
	Held       bool              `json:"held"`
	Changed    bool              `json:"changed"`
}

type RoleSummary struct {
	Address      domain.Address      `json:"address"`
	Capabilities []domain.Capability `json:"capabilities"`
	PrimaryRole  string              `json:"primary_role"`
}

type MetadataDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Attributes  struct {
		IssueDate time.Time `json:"issueDate"`
		Template  string    `json:"template"`
	} `json:"attributes"`
}

type Metadata struct {
	MetadataRef domain.MetadataRef `json:"metadata_ref"`
	Document    *MetadataDocument  `json:"document"`
}

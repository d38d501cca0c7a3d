package models

import (
	"time"

	"quorumcred/pkg/domain"
)

// EventType names an entry in the credential event feed.
type EventType string

const (
	EventCredentialCreated EventType = "credential_created"
	EventCredentialSigned  EventType = "credential_signed"
)

// Event is one entry of the append-only credential feed. Sequence is global
// and strictly increasing; it is assigned by the store in commit order, so
// replaying by sequence preserves per-credential order.
type Event struct {
	Sequence     uint64              `json:"sequence"`
	Type         EventType           `json:"type"`
	CredentialID domain.CredentialID `json:"credential_id"`
	OccurredAt   time.Time           `json:"occurred_at"`
	Created      *CredentialCreated  `json:"created,omitempty"`
	Signed       *CredentialSigned   `json:"signed,omitempty"`
}

type CredentialCreated struct {
	Student            domain.Address     `json:"student"`
	Issuer             domain.Address     `json:"issuer"`
	MetadataRef        domain.MetadataRef `json:"metadata_ref"`
	RequiredSignatures int                `json:"required_signatures"`
}

type CredentialSigned struct {
	Signer         domain.Address `json:"signer"`
	SignatureCount int            `json:"signature_count"`
}

// NewCreatedEvent describes the creation of c. Sequence is left for the store.
func NewCreatedEvent(c *Credential) Event {
	return Event{
		Type:         EventCredentialCreated,
		CredentialID: c.ID,
		OccurredAt:   c.CreatedAt,
		Created: &CredentialCreated{
			Student:            c.Student,
			Issuer:             c.Issuer,
			MetadataRef:        c.MetadataRef,
			RequiredSignatures: c.RequiredSignatures,
		},
	}
}

// NewSignedEvent describes the signature that brought c to its current count.
func NewSignedEvent(c *Credential, signer domain.Address, at time.Time) Event {
	return Event{
		Type:         EventCredentialSigned,
		CredentialID: c.ID,
		OccurredAt:   at,
		Signed: &CredentialSigned{
			Signer:         signer,
			SignatureCount: c.SignatureCount(),
		},
	}
}

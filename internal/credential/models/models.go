package models

import (
	"slices"
	"time"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
)

// Signature records one validator co-signing a credential.
type Signature struct {
	Signer   domain.Address `json:"signer"`
	SignedAt time.Time      `json:"signed_at"`
}

// Credential is a permanent, append-only attestation about a student.
//
// Everything except Signatures is write-once. Signatures only grow, hold no
// duplicate signer, and are kept in signing order. Status is never stored: it
// is derived from the signature count and RequiredSignatures, so a credential
// flips from pending to valid at most once and never back.
type Credential struct {
	ID                 domain.CredentialID
	Student            domain.Address
	Issuer             domain.Address
	MetadataRef        domain.MetadataRef
	RequiredSignatures int
	Signatures         []Signature
	CreatedAt          time.Time
}

// NewCredential builds an unsigned credential. The ID is assigned by the store.
func NewCredential(student, issuer domain.Address, ref domain.MetadataRef, requiredSignatures int, createdAt time.Time) (*Credential, error) {
	if requiredSignatures < 1 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "required signatures must be at least 1")
	}
	if student.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "student address required")
	}
	if issuer.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "issuer address required")
	}
	if ref.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "metadata reference required")
	}
	if createdAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	return &Credential{
		Student:            student,
		Issuer:             issuer,
		MetadataRef:        ref,
		RequiredSignatures: requiredSignatures,
		CreatedAt:          createdAt,
	}, nil
}

func (c *Credential) SignatureCount() int {
	return len(c.Signatures)
}

func (c *Credential) HasSigned(addr domain.Address) bool {
	return slices.ContainsFunc(c.Signatures, func(s Signature) bool { return s.Signer == addr })
}

// Status derives the lifecycle state from the signature count.
func (c *Credential) Status() Status {
	if c.SignatureCount() >= c.RequiredSignatures {
		return StatusValid
	}
	return StatusPending
}

func (c *Credential) IsValid() bool {
	return c.Status() == StatusValid
}

// Signers returns the signer addresses in signing order.
func (c *Credential) Signers() []domain.Address {
	out := make([]domain.Address, len(c.Signatures))
	for i, s := range c.Signatures {
		out[i] = s.Signer
	}
	return out
}

// AddSignature appends signer and reports whether this signature is the one
// that made the credential valid.
func (c *Credential) AddSignature(signer domain.Address, at time.Time) (bool, error) {
	if signer.IsZero() {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "signer address required")
	}
	if c.HasSigned(signer) {
		return false, dErrors.New(dErrors.CodeAlreadySigned, "validator already signed this credential")
	}
	wasValid := c.IsValid()
	c.Signatures = append(c.Signatures, Signature{Signer: signer, SignedAt: at})
	return !wasValid && c.IsValid(), nil
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.Signatures = slices.Clone(c.Signatures)
	return &out
}

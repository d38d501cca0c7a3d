package testutil

import (
	"fmt"
	"time"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
)

// Address returns a deterministic, non-zero test address for n >= 1.
func Address(n int) domain.Address {
	addr, err := domain.ParseAddress(fmt.Sprintf("0x%040x", n))
	if err != nil {
		panic(err)
	}
	return addr
}

// Well-known participants for readable tests.
var (
	Student    = Address(0x51)
	Issuer     = Address(0x15)
	Validator1 = Address(0xa1)
	Validator2 = Address(0xa2)
	Validator3 = Address(0xa3)
	Outsider   = Address(0xee)
)

// FixedTime is a stable clock value for tests that compare timestamps.
var FixedTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// CredentialBuilder provides a fluent interface for building unsaved credentials.
type CredentialBuilder struct {
	c models.Credential
}

// NewCredentialBuilder starts from a valid two-signature credential.
func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{c: models.Credential{
		Student:            Student,
		Issuer:             Issuer,
		MetadataRef:        "ipfs://bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		RequiredSignatures: 2,
		CreatedAt:          FixedTime,
	}}
}

func (b *CredentialBuilder) WithStudent(a domain.Address) *CredentialBuilder {
	b.c.Student = a
	return b
}

func (b *CredentialBuilder) WithIssuer(a domain.Address) *CredentialBuilder {
	b.c.Issuer = a
	return b
}

func (b *CredentialBuilder) WithRef(ref domain.MetadataRef) *CredentialBuilder {
	b.c.MetadataRef = ref
	return b
}

func (b *CredentialBuilder) WithThreshold(n int) *CredentialBuilder {
	b.c.RequiredSignatures = n
	return b
}

func (b *CredentialBuilder) Build() *models.Credential {
	return b.c.Clone()
}

// Package domain provides type-safe identifiers shared by the registry, role
// authority and metadata boundaries.
package domain

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "quorumcred/pkg/domain-errors"
)

// Address identifies an account (issuer, validator or student).
// The zero value is the zero address and is never a valid participant.
type Address common.Address

// CredentialID is allocated by the registry store starting at 1.
type CredentialID uint64

// MetadataRef is an opaque pointer into the metadata store.
type MetadataRef string

// Capability is a permission answered by the role authority.
type Capability string

const (
	CapabilityIssuer    Capability = "issuer"
	CapabilityValidator Capability = "validator"
)

// Capabilities lists every capability the role authority knows about.
var Capabilities = []Capability{CapabilityIssuer, CapabilityValidator}

// Parse functions - use at trust boundaries (handlers, CLI flags, config).

func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidArgument, "address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return Address{}, dErrors.New(dErrors.CodeInvalidArgument, "invalid address format")
	}
	addr := Address(common.HexToAddress(s))
	if addr.IsZero() {
		return Address{}, dErrors.New(dErrors.CodeInvalidArgument, "zero address is not allowed")
	}
	return addr, nil
}

func ParseCredentialID(s string) (CredentialID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "credential ID cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid credential ID format")
	}
	return CredentialID(n), nil
}

func ParseMetadataRef(s string) (MetadataRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "metadata reference cannot be empty")
	}
	return MetadataRef(s), nil
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown capability: "+s)
	}
	return c, nil
}

// String returns the EIP-55 checksummed form.
func (a Address) String() string       { return common.Address(a).Hex() }
func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (r MetadataRef) String() string   { return string(r) }
func (c Capability) String() string    { return string(c) }

func (a Address) IsZero() bool      { return a == Address{} }
func (id CredentialID) IsNil() bool { return id == 0 }
func (r MetadataRef) IsNil() bool   { return strings.TrimSpace(string(r)) == "" }

func (c Capability) IsValid() bool {
	return c == CapabilityIssuer || c == CapabilityValidator
}

// Bytes exposes the raw 20 bytes for signature recovery comparisons.
func (a Address) Bytes() []byte { return common.Address(a).Bytes() }

// MarshalText encodes the address in checksummed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts any hex casing. The zero address is rejected.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

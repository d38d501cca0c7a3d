// Package models holds the role authority's value types.
package models

import "quorumcred/pkg/domain"

// Role is the single role a wallet is presented as, derived from the
// capabilities it holds. Issuer outranks validator; everyone else is a
// student.
type Role string

const (
	RoleIssuer    Role = "issuer"
	RoleValidator Role = "validator"
	RoleStudent   Role = "student"
)

// PrimaryRole resolves the displayed role from a capability set.
func PrimaryRole(capabilities []domain.Capability) Role {
	role := RoleStudent
	for _, c := range capabilities {
		switch c {
		case domain.CapabilityIssuer:
			return RoleIssuer
		case domain.CapabilityValidator:
			role = RoleValidator
		}
	}
	return role
}

// Audit reasons attached to role changes.
const (
	AuditReasonAdminRequest = "admin_request"
	AuditReasonBootstrap    = "bootstrap"
)

// Summary is everything the authority knows about one address.
type Summary struct {
	Address      domain.Address      `json:"address"`
	Capabilities []domain.Capability `json:"capabilities"`
	PrimaryRole  Role                `json:"primary_role"`
}

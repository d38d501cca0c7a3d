package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quorumcred/pkg/domain"
)

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name string
		caps []domain.Capability
		want Role
	}{
		{"no capabilities", nil, RoleStudent},
		{"validator only", []domain.Capability{domain.CapabilityValidator}, RoleValidator},
		{"issuer only", []domain.Capability{domain.CapabilityIssuer}, RoleIssuer},
		{"issuer outranks validator", []domain.Capability{domain.CapabilityValidator, domain.CapabilityIssuer}, RoleIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryRole(tt.caps))
		})
	}
}

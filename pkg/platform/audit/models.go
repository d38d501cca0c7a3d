// Package audit records who did what to which credential or role, for
// operators. It is separate from the credential event feed: audit events may
// be dropped under load, feed events never are.
package audit

import (
	"time"

	"quorumcred/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string              `json:"id"`
	Timestamp    time.Time           `json:"timestamp"`
	Actor        domain.Address      `json:"actor"`
	Subject      string              `json:"subject,omitempty"`
	CredentialID domain.CredentialID `json:"credential_id,omitempty"`
	Capability   string              `json:"capability,omitempty"`
	Action       string              `json:"action"`
	Decision     string              `json:"decision,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	RequestID    string              `json:"request_id,omitempty"`
	Client       string              `json:"client,omitempty"`
}

// Role authority and sign-in actions. Credential actions live with the
// credential models.
const (
	ActionRoleGranted   = "role_granted"
	ActionRoleRevoked   = "role_revoked"
	ActionSignInSuccess = "sign_in_succeeded"
	ActionSignInFailed  = "sign_in_failed"
)

package models

import (
	"strings"

	dErrors "quorumcred/pkg/domain-errors"
)

// Status is the derived lifecycle state of a credential.
type Status string

const (
	StatusPending Status = "pending"
	StatusValid   Status = "valid"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusValid
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "status must be one of [pending valid]")
	}
	return st, nil
}

// SelfSigningPolicy decides whether an issuer holding the validator
// capability may sign a credential they issued.
type SelfSigningPolicy string

const (
	SelfSigningAllow  SelfSigningPolicy = "allow"
	SelfSigningForbid SelfSigningPolicy = "forbid"
)

func ParseSelfSigningPolicy(s string) (SelfSigningPolicy, error) {
	switch p := SelfSigningPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SelfSigningAllow, SelfSigningForbid:
		return p, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidArgument, "self-signing policy must be set explicitly (allow or forbid)")
	default:
		return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown self-signing policy: "+s)
	}
}

// ThresholdPolicy decides what happens when a credential asks for more
// signatures than there are validators.
type ThresholdPolicy string

const (
	// ThresholdUnbounded accepts any threshold and reports unreachable ones.
	ThresholdUnbounded ThresholdPolicy = "unbounded"
	// ThresholdValidatorCount rejects thresholds above the current validator count.
	ThresholdValidatorCount ThresholdPolicy = "validator_count"
)

func ParseThresholdPolicy(s string) (ThresholdPolicy, error) {
	switch p := ThresholdPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ThresholdUnbounded, nil
	case ThresholdUnbounded, ThresholdValidatorCount:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown threshold policy: "+s)
	}
}

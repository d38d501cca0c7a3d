package models

import "quorumcred/pkg/domain"

// Query filters the derived credential index. Nil fields do not filter.
// Results are ordered by credential ID ascending, starting after AfterID.
type Query struct {
	Student     *domain.Address
	Issuer      *domain.Address
	Status      *Status
	SignedBy    *domain.Address
	NotSignedBy *domain.Address
	// Text matches the metadata name or description, case-insensitively.
	Text    string
	AfterID domain.CredentialID
	Limit   int
}

// View is a credential as reconstructed from the event feed, plus the
// metadata labels resolved for search.
type View struct {
	Credential
	Name        string
	Description string
	// LastSequence is the feed sequence of the last event applied.
	LastSequence uint64
}

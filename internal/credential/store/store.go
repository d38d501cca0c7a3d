// Package store persists credentials together with the event feed they emit.
//
// Error Contract:
//   - FindByID and AddSignature return ErrNotFound for an unknown credential
//   - AddSignature returns ErrAlreadySigned when the signer is already present
//   - Infrastructure failures are wrapped with context and carry no sentinel
//
// Every mutation applies the credential change and appends its event as one
// atomic unit; readers never observe one without the other.
package store

import "errors"

var (
	ErrNotFound      = errors.New("credential not found")
	ErrAlreadySigned = errors.New("signer already present")
)

// DefaultEventPage is used when EventsAfter is called with limit <= 0.
const DefaultEventPage = 100

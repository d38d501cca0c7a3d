// Package store keeps capability memberships as one set of addresses per
// capability.
//
// Error Contract:
//   - Add and Remove are idempotent and report whether the set changed
//   - Infrastructure failures are wrapped with context
//   - Members returns addresses in ascending byte order
package store

import (
	"bytes"
	"slices"

	"quorumcred/pkg/domain"
)

func sortAddresses(addrs []domain.Address) {
	slices.SortFunc(addrs, func(a, b domain.Address) int {
		return bytes.Compare(a[:], b[:])
	})
}

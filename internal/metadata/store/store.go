// Package store keeps metadata blobs behind content-addressed references of
// the form ipfs://<cid>.
//
// Error Contract:
//   - Get returns ErrNotFound when no blob exists for the reference
//   - Get returns ErrIntegrity when fetched bytes do not match the reference
//   - Get returns ErrTooLarge when a fetched document exceeds the size limit
//   - ParseRef failures wrap ErrInvalidRef
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"quorumcred/pkg/domain"
)

var (
	ErrNotFound   = errors.New("metadata not found")
	ErrIntegrity  = errors.New("metadata does not match its reference")
	ErrInvalidRef = errors.New("invalid metadata reference")
	ErrTooLarge   = errors.New("metadata document too large")
)

const refScheme = "ipfs://"

// RefFor computes the CIDv1 (raw codec, sha2-256) reference of blob.
func RefFor(blob []byte) (domain.MetadataRef, error) {
	mh, err := multihash.Sum(blob, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash metadata: %w", err)
	}
	return refOf(cid.NewCidV1(cid.Raw, mh)), nil
}

// ParseRef extracts the CID from an ipfs:// reference. A bare CID is accepted.
func ParseRef(ref domain.MetadataRef) (cid.Cid, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(ref.String()), refScheme)
	c, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %s", ErrInvalidRef, err.Error())
	}
	return c, nil
}

// Verify checks blob against c. Only raw-codec CIDs hash the bytes directly;
// other codecs wrap the content and are accepted as served.
func Verify(c cid.Cid, blob []byte) error {
	if c.Type() != cid.Raw {
		return nil
	}
	got, err := c.Prefix().Sum(blob)
	if err != nil {
		return fmt.Errorf("hash metadata: %w", err)
	}
	if !got.Equals(c) {
		return fmt.Errorf("%w: expected %s, got %s", ErrIntegrity, c, got)
	}
	return nil
}

func refOf(c cid.Cid) domain.MetadataRef {
	return domain.MetadataRef(refScheme + c.String())
}

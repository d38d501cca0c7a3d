package handler

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/validation"
)

// CreateRequest issues a credential. Metadata is either an existing reference
// or a catalog type that is published before the credential is minted.
type CreateRequest struct {
	Student            string           `json:"student" validate:"required"`
	RequiredSignatures int              `json:"required_signatures"`
	MetadataRef        string           `json:"metadata_ref,omitempty"`
	Metadata           *MetadataRequest `json:"metadata,omitempty"`
}

type MetadataRequest struct {
	Type        string `json:"type" validate:"required,max=32"`
	Description string `json:"description" validate:"max=2000"`
}

func (r *CreateRequest) Normalize() {
	r.Student = strings.TrimSpace(r.Student)
	r.MetadataRef = strings.TrimSpace(r.MetadataRef)
	if r.Metadata != nil {
		r.Metadata.Type = strings.ToLower(strings.TrimSpace(r.Metadata.Type))
		r.Metadata.Description = strings.TrimSpace(r.Metadata.Description)
	}
}

// Validate checks the request shape only. Threshold and zero-address rules
// belong to the registry, which applies them after the issuer check.
func (r *CreateRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if !common.IsHexAddress(r.Student) {
		return dErrors.New(dErrors.CodeInvalidArgument, "student must be a hex address")
	}
	if r.Metadata != nil {
		if r.MetadataRef != "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "metadata_ref and metadata are mutually exclusive")
		}
		if err := validation.Validate(r.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// StudentAddress converts without rejecting the zero address, which the
// registry reports itself.
func (r *CreateRequest) StudentAddress() domain.Address {
	return domain.Address(common.HexToAddress(r.Student))
}

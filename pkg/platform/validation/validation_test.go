package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "quorumcred/pkg/domain-errors"
)

type ValidationSuite struct {
	suite.Suite
}

func TestValidationSuite(t *testing.T) {
	suite.Run(t, new(ValidationSuite))
}

type issueRequest struct {
	Student            string `json:"student" validate:"required,address"`
	MetadataRef        string `json:"metadata_ref" validate:"notblank"`
	RequiredSignatures int    `json:"required_signatures" validate:"min=1"`
}

func (s *ValidationSuite) TestValidate() {
	valid := issueRequest{
		Student:            "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		MetadataRef:        "ipfs://bafk",
		RequiredSignatures: 2,
	}

	s.Run("accepts a well formed request", func() {
		s.NoError(Validate(valid))
	})

	s.Run("names json field on address failure", func() {
		req := valid
		req.Student = "0x0000000000000000000000000000000000000000"
		err := Validate(req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		s.Equal("student must be a non-zero hex address", err.Error())
	})

	s.Run("rejects blank metadata", func() {
		req := valid
		req.MetadataRef = "   "
		s.Equal("metadata_ref must not be blank", Validate(req).Error())
	})

	s.Run("rejects zero threshold", func() {
		req := valid
		req.RequiredSignatures = 0
		s.Equal("required_signatures must be at least 1", Validate(req).Error())
	})
}

func (s *ValidationSuite) TestCheckStringLength() {
	s.NoError(CheckStringLength("metadata_ref", strings.Repeat("a", MaxMetadataRefLength), MaxMetadataRefLength))
	err := CheckStringLength("metadata_ref", strings.Repeat("a", MaxMetadataRefLength+1), MaxMetadataRefLength)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

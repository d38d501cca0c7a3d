// Package validation wraps go-playground/validator with the rules and limits
// used at the HTTP trust boundary.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	dErrors "quorumcred/pkg/domain-errors"
)

// Request limits.
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024

	// MaxMetadataRefLength bounds metadata references (URIs or CIDs).
	MaxMetadataRefLength = 512

	// MaxRequiredSignatures bounds the threshold accepted on creation.
	MaxRequiredSignatures = 1024

	// MaxPageSize bounds list and feed page sizes.
	MaxPageSize = 500

	// MaxSearchLength bounds free-text search terms.
	MaxSearchLength = 200
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return common.IsHexAddress(s) && common.HexToAddress(s) != (common.Address{})
	})
	return v
}

// Validate validates a struct and returns an invalid_argument domain error.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message
// naming the first offending JSON field.
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	field := fe.Field()

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid url", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "address":
		return fmt.Sprintf("%s must be a non-zero hex address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

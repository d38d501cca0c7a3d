package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the error primitives every layer relies on to keep
// the registry failure kinds distinct.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "credential not found"}
		s.Equal("credential not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAlreadySigned}
		s.Equal("already_signed", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeNotFound, Message: "credential 4 not found"}
		err2 := &Error{Code: CodeNotFound, Message: "credential 9 not found"}
		s.True(err1.Is(err2))
	})

	s.Run("registry codes never match each other", func() {
		codes := []Code{CodeUnauthorized, CodeNotFound, CodeInvalidArgument, CodeAlreadySigned}
		for i, a := range codes {
			for j, b := range codes {
				if i == j {
					continue
				}
				s.False((&Error{Code: a}).Is(&Error{Code: b}), "%s vs %s", a, b)
			}
		}
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through fmt wrapping", func() {
		inner := New(CodeAlreadySigned, "validator already signed")
		wrapped := fmt.Errorf("sign credential: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeAlreadySigned}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeNotFound, "credential not found")
		wrapped := Wrap(original, CodeInternal, "sign failed")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeNotFound, domainErr.Code)
		s.Equal("sign failed", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("connection reset")
		wrapped := Wrap(original, CodeInternal, "store error")

		s.True(HasCode(wrapped, CodeInternal))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("finds code through error chain", func() {
		wrapped := Wrap(New(CodeUnauthorized, "missing validator capability"), CodeInternal, "wrapped")
		s.True(HasCode(wrapped, CodeUnauthorized))
		s.Equal(CodeUnauthorized, CodeOf(wrapped))
	})

	s.Run("nil and plain errors", func() {
		s.False(HasCode(nil, CodeNotFound))
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})
}

func (s *DomainErrorsSuite) TestNewf() {
	err := Newf(CodeNotFound, "credential %d not found", 7)
	s.Equal("credential 7 not found", err.Error())
	s.True(HasCode(err, CodeNotFound))
}

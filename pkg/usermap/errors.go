package usermap

import (
	"errors"
	"fmt"
)

// Identity mapper errors.
var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("usermap: invalid input")

	// ErrTextConversion matches every *TextConversionError via errors.Is.
	ErrTextConversion = errors.New("usermap: text conversion failed")

	// ErrNoBackend is returned when a Mapper is created without a Backend.
	ErrNoBackend = errors.New("usermap: no backend configured")

	// ErrInvalidCertificate is returned when certificate bytes cannot be parsed.
	ErrInvalidCertificate = errors.New("usermap: invalid certificate")
)

// ValidationError reports an input exceeding a fixed length limit of the
// access-control subsystem. It is returned before any backend call.
type ValidationError struct {
	Field  string
	Length int
	Max    int
}

func (e *ValidationError) Error() string {
	if e.Max == 0 {
		return fmt.Sprintf("usermap: %s must not be empty", e.Field)
	}
	return fmt.Sprintf("usermap: %s is %d bytes, at most %d allowed", e.Field, e.Length, e.Max)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TextConversionError reports text that could not be converted to or from
// the legacy encoding.
type TextConversionError struct {
	Field string
	Err   error
}

func (e *TextConversionError) Error() string {
	return fmt.Sprintf("usermap: %s: %v", e.Field, e.Err)
}

// Is reports whether target is ErrTextConversion.
func (e *TextConversionError) Is(target error) bool {
	return target == ErrTextConversion
}

func (e *TextConversionError) Unwrap() error {
	return e.Err
}

package attls

import (
	"errors"
	"fmt"
)

// AT-TLS package errors.
var (
	// ErrUnknownCode matches every *UnknownCodeError via errors.Is.
	ErrUnknownCode = errors.New("attls: unknown code")

	// ErrResourceExhausted matches every *ResourceExhaustionError via errors.Is.
	ErrResourceExhausted = errors.New("attls: resources exhausted")

	// ErrTextConversion matches every *TextConversionError via errors.Is.
	ErrTextConversion = errors.New("attls: text conversion failed")

	// ErrDuplicateCode is returned when two values of one category share a code.
	ErrDuplicateCode = errors.New("attls: duplicate enum code")

	// ErrEmptyCategory is returned when a category has no defined values.
	ErrEmptyCategory = errors.New("attls: empty enum category")

	// ErrClosed is returned after the manager or the context has been closed.
	ErrClosed = errors.New("attls: closed")

	// ErrInvalidDescriptor is returned for a negative socket descriptor.
	ErrInvalidDescriptor = errors.New("attls: invalid socket descriptor")

	// ErrInvalidConfig is returned when a ManagerConfig value is out of range.
	ErrInvalidConfig = errors.New("attls: invalid configuration")
)

// UnknownCodeError reports a decoded byte with no defined value in its
// category. Mod is only meaningful for CategoryProtocol.
type UnknownCodeError struct {
	Category Category
	Code     uint8
	Mod      uint8
}

func (e *UnknownCodeError) Error() string {
	if e.Category == CategoryProtocol {
		return fmt.Sprintf("attls: unknown %s code (%d, %d)", e.Category, e.Code, e.Mod)
	}
	return fmt.Sprintf("attls: unknown %s code %d", e.Category, e.Code)
}

// Is reports whether target is ErrUnknownCode.
func (e *UnknownCodeError) Is(target error) bool {
	return target == ErrUnknownCode
}

// TextConversionError reports a text field that could not be transcoded.
type TextConversionError struct {
	Field string
	Err   error
}

func (e *TextConversionError) Error() string {
	return fmt.Sprintf("attls: %s: %v", e.Field, e.Err)
}

// Is reports whether target is ErrTextConversion.
func (e *TextConversionError) Is(target error) bool {
	return target == ErrTextConversion
}

func (e *TextConversionError) Unwrap() error {
	return e.Err
}

// ResourceExhaustionError reports a buffer that could not be allocated
// within the manager's buffer budget.
type ResourceExhaustionError struct {
	Buffer string
	Size   int
}

func (e *ResourceExhaustionError) Error() string {
	return fmt.Sprintf("attls: cannot allocate %s buffer of %d bytes", e.Buffer, e.Size)
}

// Is reports whether target is ErrResourceExhausted.
func (e *ResourceExhaustionError) Is(target error) bool {
	return target == ErrResourceExhausted
}

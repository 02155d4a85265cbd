package ttls

import (
	"errors"
	"fmt"
	"syscall"
)

// Control call errors.
var (
	// ErrInvalidRequest is returned when a request mixes commands with QueryOnly,
	// names more than one command, or sets no known flag.
	ErrInvalidRequest = errors.New("ttls: invalid request type")

	// ErrShortBlock is returned when a control block is smaller than BlockSize.
	ErrShortBlock = errors.New("ttls: control block too short")

	// ErrNoOutputBuffer is returned when ReturnCertificate is requested without an output buffer.
	ErrNoOutputBuffer = errors.New("ttls: certificate requested without output buffer")

	// ErrUnsupported is returned when the platform has no control call.
	ErrUnsupported = errors.New("ttls: control call not supported on this platform")

	// ErrControlCall matches every *ControlCallError via errors.Is.
	ErrControlCall = errors.New("ttls: control call failed")
)

// ControlCallError reports a failed control call. ReturnCode is the call's own
// result, Errno the primary reason and Errno2 the secondary (platform) reason.
// The control block content is undefined after this error.
type ControlCallError struct {
	ReturnCode int
	Errno      int
	Errno2     int
}

func (e *ControlCallError) Error() string {
	return fmt.Sprintf("ttls: control call failed: rc=%d errno=%d errno2=0x%08X", e.ReturnCode, e.Errno, uint32(e.Errno2))
}

// Is reports whether target is ErrControlCall.
func (e *ControlCallError) Is(target error) bool {
	return target == ErrControlCall
}

// Unwrap returns the primary reason as a syscall.Errno.
func (e *ControlCallError) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return syscall.Errno(e.Errno)
}

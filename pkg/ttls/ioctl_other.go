//go:build !zos

package ttls

// PlatformSyscaller returns ErrUnsupported: AT-TLS exists only on z/OS.
func PlatformSyscaller() (Syscaller, error) {
	return nil, ErrUnsupported
}

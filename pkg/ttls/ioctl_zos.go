//go:build zos

package ttls

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SIOCTTLSCTL is _IOWR('|', 11, block).
const SIOCTTLSCTL = 0xC0807C0B

type platformSyscaller struct{}

// PlatformSyscaller returns the ioctl-based control call.
func PlatformSyscaller() (Syscaller, error) {
	return platformSyscaller{}, nil
}

func (platformSyscaller) Control(fd int, block, out []byte) Status {
	rc, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), SIOCTTLSCTL, uintptr(unsafe.Pointer(&block[0])))
	if int(rc) < 0 || errno != 0 {
		return Status{ReturnCode: -1, Errno: int(errno), Errno2: unix.Errno2()}
	}
	return Status{ReturnCode: int(rc)}
}

//go:build unix

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkStreamSocket verifies that fd is an open stream socket.
func checkStreamSocket(fd int) error {
	typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return fmt.Errorf("fd %d is not a socket: %w", fd, err)
	}
	if typ != unix.SOCK_STREAM {
		return fmt.Errorf("fd %d is not a stream socket (type %d)", fd, typ)
	}
	return nil
}

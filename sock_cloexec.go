//go:build dragonfly || freebsd || linux || netbsd || openbsd
// +build dragonfly freebsd linux netbsd openbsd

package tcpsock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sysSocket creates a non-blocking, close-on-exec stream socket in one
// socket(2) call.
func sysSocket(family int) (int, error) {
	fd, err := unix.Socket(family,
		unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, errors.WithStack(err)
	}
	return fd, nil
}

//go:build darwin
// +build darwin

package tcpsock

import (
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sysSocket creates a non-blocking, close-on-exec stream socket on
// platforms without SOCK_NONBLOCK/SOCK_CLOEXEC; ForkLock keeps the
// descriptor from leaking into a forked child before CloseOnExec.
func sysSocket(family int) (int, error) {
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, errors.WithStack(err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, errors.WithStack(err)
	}
	return fd, nil
}

//go:build linux
// +build linux

package tcpsock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// BindDevice set SO_BINDTODEVICE, restricting the socket to ifname;
// an empty name removes the binding. Requires CAP_NET_RAW.
func (s *Socket) BindDevice(ifname string) error {
	if s.fd < 0 {
		return errors.WithStack(ErrClosed)
	}
	if err := unix.SetsockoptString(s.fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifname); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Device reports SO_BINDTODEVICE, empty when not bound to a device.
func (s *Socket) Device() (string, error) {
	if s.fd < 0 {
		return "", errors.WithStack(ErrClosed)
	}
	name, err := unix.GetsockoptString(s.fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return name, nil
}

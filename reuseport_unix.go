//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package tcpsock

import "golang.org/x/sys/unix"

// SO_REUSEPORT is a capability, not a portable option: solaris/illumos
// fold it into SO_REUSEADDR and windows has no equivalent, so the
// accessors and the Reuseport dial option exist only on platforms that
// support it.

// SetReuseport set SO_REUSEPORT, allowing several live sockets to bind
// the same address and port.
func (s *Socket) SetReuseport(v bool) error {
	return s.setInt(unix.SOL_SOCKET, unix.SO_REUSEPORT, boolint(v))
}

// Reuseport reports SO_REUSEPORT.
func (s *Socket) Reuseport() (bool, error) {
	n, err := s.getInt(unix.SOL_SOCKET, unix.SO_REUSEPORT)
	return n != 0, err
}

// Reuseport set SO_REUSEPORT before bind, default false
func Reuseport(v bool) Option {
	return func(c *Config) {
		c.Reuseport = v
	}
}

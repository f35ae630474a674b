//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package tcpsock

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Nothing is cached: every getter issues a fresh getsockopt(2), and a
// value read back may differ from the value set because the kernel
// clamps or transforms it. Errors are the os's, verbatim.

// SetReuseaddr set SO_REUSEADDR.
//
// On Berkeley-derived stacks this permits quick rebinding to an
// address whose previous user is gone (e.g. still in TIME_WAIT); it
// does not permit hijacking an address another live socket holds.
func (s *Socket) SetReuseaddr(v bool) error {
	return s.setInt(unix.SOL_SOCKET, unix.SO_REUSEADDR, boolint(v))
}

// Reuseaddr reports SO_REUSEADDR.
func (s *Socket) Reuseaddr() (bool, error) {
	n, err := s.getInt(unix.SOL_SOCKET, unix.SO_REUSEADDR)
	return n != 0, err
}

// SetSendBuffer set the SO_SNDBUF hint in bytes.
//
// The kernel clamps the hint to its min/max bounds, and linux doubles
// the stored value for bookkeeping overhead; SendBuffer reports the
// transformed value, never expect it to round-trip.
func (s *Socket) SetSendBuffer(bytes int) error {
	return s.setInt(unix.SOL_SOCKET, unix.SO_SNDBUF, bytes)
}

// SendBuffer reports SO_SNDBUF, see SetSendBuffer for why it may not
// match the value set.
func (s *Socket) SendBuffer() (int, error) {
	return s.getInt(unix.SOL_SOCKET, unix.SO_SNDBUF)
}

// SetRecvBuffer set the SO_RCVBUF hint in bytes, with the same
// clamp/double caveat as SetSendBuffer.
func (s *Socket) SetRecvBuffer(bytes int) error {
	return s.setInt(unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
}

// RecvBuffer reports SO_RCVBUF.
func (s *Socket) RecvBuffer() (int, error) {
	return s.getInt(unix.SOL_SOCKET, unix.SO_RCVBUF)
}

// SetNodelay set TCP_NODELAY.
func (s *Socket) SetNodelay(v bool) error {
	return s.setInt(unix.IPPROTO_TCP, unix.TCP_NODELAY, boolint(v))
}

// Nodelay reports TCP_NODELAY.
func (s *Socket) Nodelay() (bool, error) {
	n, err := s.getInt(unix.IPPROTO_TCP, unix.TCP_NODELAY)
	return n != 0, err
}

// SetKeepalive set SO_KEEPALIVE.
func (s *Socket) SetKeepalive(v bool) error {
	return s.setInt(unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolint(v))
}

// Keepalive reports SO_KEEPALIVE.
func (s *Socket) Keepalive() (bool, error) {
	n, err := s.getInt(unix.SOL_SOCKET, unix.SO_KEEPALIVE)
	return n != 0, err
}

// SetLinger set SO_LINGER, a negative d disables lingering; d is
// rounded down to whole seconds.
func (s *Socket) SetLinger(d time.Duration) error {
	if s.fd < 0 {
		return errors.WithStack(ErrClosed)
	}

	var l unix.Linger
	if d >= 0 {
		l.Onoff = 1
		l.Linger = int32(d / time.Second)
	}
	if err := unix.SetsockoptLinger(s.fd, unix.SOL_SOCKET, unix.SO_LINGER, &l); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Linger reports SO_LINGER, -1 when lingering is disabled.
func (s *Socket) Linger() (time.Duration, error) {
	if s.fd < 0 {
		return 0, errors.WithStack(ErrClosed)
	}

	l, err := unix.GetsockoptLinger(s.fd, unix.SOL_SOCKET, unix.SO_LINGER)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if l.Onoff == 0 {
		return -1, nil
	}
	return time.Duration(l.Linger) * time.Second, nil
}

// SetV6Only set IPV6_V6ONLY, only meaningful for NewV6 sockets and
// only before bind; the os rejects it elsewhere.
func (s *Socket) SetV6Only(v bool) error {
	return s.setInt(unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, boolint(v))
}

// V6Only reports IPV6_V6ONLY.
func (s *Socket) V6Only() (bool, error) {
	n, err := s.getInt(unix.IPPROTO_IPV6, unix.IPV6_V6ONLY)
	return n != 0, err
}

func (s *Socket) setInt(level, opt, value int) error {
	if s.fd < 0 {
		return errors.WithStack(ErrClosed)
	}
	if err := unix.SetsockoptInt(s.fd, level, opt, value); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (s *Socket) getInt(level, opt int) (int, error) {
	if s.fd < 0 {
		return 0, errors.WithStack(ErrClosed)
	}
	n, err := unix.GetsockoptInt(s.fd, level, opt)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}

func boolint(v bool) int {
	if v {
		return 1
	}
	return 0
}

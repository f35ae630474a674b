//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package tcpsock

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Connect establishes a TCP connection with raddr, calls connect(2).
//
// The Socket is consumed, also when Connect fails. The connect is
// issued non-blocking and completion awaited on the runtime poller, so
// no thread is parked; Connect itself has no timeout, deadline and
// cancellation policy come with ctx. A cancelled ctx still closes the
// in-flight descriptor exactly once.
func (s *Socket) Connect(ctx context.Context, raddr netip.AddrPort) (*net.TCPConn, error) {
	if s.fd < 0 {
		return nil, errors.WithStack(ErrClosed)
	}
	if !raddr.IsValid() {
		s.Close()
		return nil, errors.WithStack(unix.EINVAL)
	}

	var pending bool
	switch err := unix.Connect(s.fd, sockaddr(raddr)); err {
	case nil, unix.EISCONN:
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		pending = true
	default:
		s.Close()
		return nil, errors.WithStack(err)
	}

	// the file owns the descriptor now, including the close duty
	f := os.NewFile(uintptr(s.fd), "tcp")
	s.fd = -1
	defer f.Close()

	if pending {
		if err := waitConnected(ctx, f); err != nil {
			return nil, err
		}
	}

	c, err := net.FileConn(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return c.(*net.TCPConn), nil
}

// waitConnected parks on the runtime poller until the non-blocking
// connect completed or failed, reported by SO_ERROR once writable.
func waitConnected(ctx context.Context, f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return errors.WithStack(err)
	}

	// a fired ctx pokes the poller wait via the write deadline
	stop := context.AfterFunc(ctx, func() {
		f.SetWriteDeadline(time.Unix(0, 1))
	})
	defer stop()

	var operr error
	err = rc.Write(func(fd uintptr) bool {
		n, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			operr = errors.WithStack(err)
			return true
		}
		switch errno := unix.Errno(n); errno {
		case 0, unix.EISCONN:
			// SO_ERROR is also zero while still in flight
			if _, err := unix.Getpeername(int(fd)); err == unix.ENOTCONN {
				return false
			}
			return true
		case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
			return false
		default:
			operr = errors.WithStack(errno)
			return true
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}
		return errors.WithStack(err)
	}
	return operr
}

// Listen converts the socket into a listener, calls listen(2) with
// backlog as the os's completed-but-unaccepted queue bound; once the
// queue is full further handshakes are rejected or dropped by the os.
//
// The Socket is consumed, also when Listen fails. Synchronous.
func (s *Socket) Listen(backlog int) (*net.TCPListener, error) {
	if s.fd < 0 {
		return nil, errors.WithStack(ErrClosed)
	}

	if err := unix.Listen(s.fd, backlog); err != nil {
		s.Close()
		return nil, errors.WithStack(err)
	}

	f := os.NewFile(uintptr(s.fd), "tcp")
	s.fd = -1
	defer f.Close()

	l, err := net.FileListener(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return l.(*net.TCPListener), nil
}

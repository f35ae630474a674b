//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package tcpsock

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"syscall"

	"github.com/lysShub/tcpsock/errorx"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Socket is a TCP socket that has not yet been converted to a
// *net.TCPConn or *net.TCPListener.
//
// While the Socket is alive its descriptor is open and exclusively
// owned by it; Connect, Listen and Detach consume the Socket, any later
// operation fails with [ErrClosed].
type Socket struct {
	fd     int // -1 after consumed or closed
	family int // unix.AF_INET, unix.AF_INET6, unix.AF_UNSPEC for adopted
	log    *slog.Logger
}

// NewV4 creates a ipv4 socket, calls socket(2) with AF_INET and
// SOCK_STREAM, in non-blocking mode.
func NewV4() (*Socket, error) {
	return newSocket(unix.AF_INET)
}

// NewV6 creates a ipv6 socket, calls socket(2) with AF_INET6 and
// SOCK_STREAM, in non-blocking mode.
func NewV6() (*Socket, error) {
	return newSocket(unix.AF_INET6)
}

func newSocket(family int) (*Socket, error) {
	fd, err := sysSocket(family)
	if err != nil {
		return nil, err
	}
	return &Socket{fd: fd, family: family}, nil
}

// Adopt takes ownership of a raw descriptor.
//
// The descriptor is not validated, the caller must ensure it refers to
// a not-yet-connected stream socket that is already in non-blocking
// mode; Adopt never changes the blocking mode.
func Adopt(fd int) *Socket {
	var s = &Socket{fd: fd, family: unix.AF_UNSPEC}
	if sa, err := unix.Getsockname(fd); err == nil {
		switch sa.(type) {
		case *unix.SockaddrInet4:
			s.family = unix.AF_INET
		case *unix.SockaddrInet6:
			s.family = unix.AF_INET6
		}
	}
	return s
}

// FromFile consumes f and adopts its socket.
//
// os.File can't hand over its descriptor, so the descriptor is
// duplicated and f closed; both refer to the same kernel socket. Same
// as [Adopt], the blocking mode is not touched: a socket taken from a
// blocking *os.File stays blocking until the caller changes it.
func FromFile(f *os.File) (*Socket, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	unix.CloseOnExec(fd)
	f.Close()
	return Adopt(fd), nil
}

// Bind binds the socket to laddr, calls bind(2).
//
// Bind does not track whether the socket is already bound, a second
// call simply surfaces the os error.
func (s *Socket) Bind(laddr netip.AddrPort) error {
	if s.fd < 0 {
		return errors.WithStack(ErrClosed)
	}
	if !laddr.IsValid() {
		return errors.WithStack(unix.EINVAL)
	}

	if err := unix.Bind(s.fd, sockaddr(laddr)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// LocalAddr calls getsockname(2), a unbound socket reports a zero port.
func (s *Socket) LocalAddr() (netip.AddrPort, error) {
	if s.fd < 0 {
		return netip.AddrPort{}, errors.WithStack(ErrClosed)
	}

	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return netip.AddrPort{}, errors.WithStack(err)
	}
	return addrPort(sa), nil
}

// Fd exposes the descriptor without transferring ownership, the caller
// must not close it.
func (s *Socket) Fd() (int, error) {
	if s.fd < 0 {
		return -1, errors.WithStack(ErrClosed)
	}
	return s.fd, nil
}

// Detach transfers the descriptor to the caller and consumes the
// Socket; closing the descriptor is the caller's duty from now on.
func (s *Socket) Detach() (int, error) {
	if s.fd < 0 {
		return -1, errors.WithStack(ErrClosed)
	}
	fd := s.fd
	s.fd = -1
	return fd, nil
}

// SyscallConn returns a control-only syscall.RawConn for configuring
// options not covered by the Socket surface. Read and Write are not
// supported, the socket is not registered with the runtime poller yet.
func (s *Socket) SyscallConn() (syscall.RawConn, error) {
	if s.fd < 0 {
		return nil, errors.WithStack(ErrClosed)
	}
	return rawSocket{s}, nil
}

type rawSocket struct{ s *Socket }

func (r rawSocket) Control(f func(fd uintptr)) error {
	if r.s.fd < 0 {
		return errors.WithStack(ErrClosed)
	}
	f(uintptr(r.s.fd))
	return nil
}

func (r rawSocket) Read(func(fd uintptr) bool) error {
	return errors.WithStack(ErrNotSupport)
}

func (r rawSocket) Write(func(fd uintptr) bool) error {
	return errors.WithStack(ErrNotSupport)
}

// Close closes the descriptor of a not-consumed Socket; after Connect,
// Listen or Detach it is a no-op. A close failure is logged and
// returned, the descriptor is gone either way.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1

	if err := unix.Close(fd); err != nil {
		err = errors.WithStack(err)
		s.logger().Warn("close tcp socket",
			slog.Int("fd", fd), errorx.TraceAttr(err),
		)
		return err
	}
	return nil
}

// SetLogger replaces the logger used for close failures.
func (s *Socket) SetLogger(l *slog.Logger) {
	s.log = l
}

func (s *Socket) logger() *slog.Logger {
	if s.log == nil {
		return slog.Default()
	}
	return s.log
}

func (s *Socket) String() string {
	if s.fd < 0 {
		return "tcp socket (closed)"
	}
	if laddr, err := s.LocalAddr(); err == nil && laddr.Port() != 0 {
		return fmt.Sprintf("tcp socket (fd %d, %s)", s.fd, laddr)
	}
	return fmt.Sprintf("tcp socket (fd %d, %s)", s.fd, familyString(s.family))
}

func (s *Socket) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("fd", s.fd),
		slog.String("family", familyString(s.family)),
	}
	if laddr, err := s.LocalAddr(); err == nil && laddr.Port() != 0 {
		attrs = append(attrs, slog.String("laddr", laddr.String()))
	}
	return slog.GroupValue(attrs...)
}

func familyString(family int) string {
	switch family {
	case unix.AF_INET:
		return "ipv4"
	case unix.AF_INET6:
		return "ipv6"
	default:
		return "unspec"
	}
}

// apply sets the options collected by Options before bind/connect.
func (s *Socket) apply(cfg *Config) (err error) {
	if cfg.Logger != nil {
		s.log = cfg.Logger
	}
	if cfg.Reuseaddr {
		if err = s.SetReuseaddr(true); err != nil {
			return err
		}
	}
	if cfg.Reuseport {
		if err = s.SetReuseport(true); err != nil {
			return err
		}
	}
	if cfg.SendBuffer > 0 {
		if err = s.SetSendBuffer(cfg.SendBuffer); err != nil {
			return err
		}
	}
	if cfg.RecvBuffer > 0 {
		if err = s.SetRecvBuffer(cfg.RecvBuffer); err != nil {
			return err
		}
	}
	if cfg.Nodelay {
		if err = s.SetNodelay(true); err != nil {
			return err
		}
	}
	return nil
}

// sockaddr converts by the form of the address, not the socket family:
// a mismatch is the os's to reject (EAFNOSUPPORT class).
func sockaddr(addr netip.AddrPort) unix.Sockaddr {
	if a := addr.Addr(); a.Is4() || a.Is4In6() {
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: a.As4()}
	} else {
		sa := &unix.SockaddrInet6{Port: int(addr.Port()), Addr: a.As16()}
		if zone := a.Zone(); zone != "" {
			if ifi, err := net.InterfaceByName(zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa
	}
}

func addrPort(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}

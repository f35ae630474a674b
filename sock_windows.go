//go:build windows
// +build windows

package tcpsock

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"syscall"
	"time"
	"unsafe"

	"github.com/lysShub/tcpsock/errorx"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// Socket is a TCP socket that has not yet been handed over to its
// final owner.
//
// On windows the Go runtime poller can't adopt a foreign socket
// handle (net.FileConn is unimplemented there), so Connect and Listen
// are not available: configure the socket, bind it and Detach the
// handle into caller-side I/O machinery instead.
type Socket struct {
	handle windows.Handle // InvalidHandle after consumed or closed
	family int
	log    *slog.Logger
}

// NewV4 creates a ipv4 stream socket in non-blocking mode.
func NewV4() (*Socket, error) {
	return newSocket(windows.AF_INET)
}

// NewV6 creates a ipv6 stream socket in non-blocking mode.
func NewV6() (*Socket, error) {
	return newSocket(windows.AF_INET6)
}

func newSocket(family int) (*Socket, error) {
	h, err := windows.WSASocket(int32(family), windows.SOCK_STREAM, windows.IPPROTO_TCP,
		nil, 0, windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := syscall.SetNonblock(syscall.Handle(h), true); err != nil {
		windows.Closesocket(h)
		return nil, errors.WithStack(err)
	}
	return &Socket{handle: h, family: family}, nil
}

// Adopt takes ownership of a raw socket handle.
//
// The handle is not validated, the caller must ensure it refers to a
// not-yet-connected stream socket; the blocking mode is not touched.
func Adopt(h windows.Handle) *Socket {
	var s = &Socket{handle: h, family: windows.AF_UNSPEC}
	if sa, err := windows.Getsockname(h); err == nil {
		switch sa.(type) {
		case *windows.SockaddrInet4:
			s.family = windows.AF_INET
		case *windows.SockaddrInet6:
			s.family = windows.AF_INET6
		}
	}
	return s
}

// Bind binds the socket to laddr, a second bind surfaces the os error.
func (s *Socket) Bind(laddr netip.AddrPort) error {
	if s.handle == windows.InvalidHandle {
		return errors.WithStack(ErrClosed)
	}
	if !laddr.IsValid() {
		return errors.WithStack(windows.WSAEINVAL)
	}

	if err := windows.Bind(s.handle, sockaddr(laddr)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// LocalAddr calls getsockname, fails on a unbound socket (windows
// reports WSAEINVAL before bind).
func (s *Socket) LocalAddr() (netip.AddrPort, error) {
	if s.handle == windows.InvalidHandle {
		return netip.AddrPort{}, errors.WithStack(ErrClosed)
	}

	sa, err := windows.Getsockname(s.handle)
	if err != nil {
		return netip.AddrPort{}, errors.WithStack(err)
	}
	return addrPort(sa), nil
}

// Connect is not available on windows, see the Socket doc.
func (s *Socket) Connect(ctx context.Context, raddr netip.AddrPort) (*net.TCPConn, error) {
	return nil, errors.WithStack(ErrNotSupport)
}

// Listen is not available on windows, see the Socket doc.
func (s *Socket) Listen(backlog int) (*net.TCPListener, error) {
	return nil, errors.WithStack(ErrNotSupport)
}

// SetReuseaddr set SO_REUSEADDR.
//
// Unlike Berkeley-derived stacks, windows SO_REUSEADDR permits binding
// an address another live socket holds ("socket hijacking"); prefer
// leaving it off, windows already rebinds recently-used addresses.
func (s *Socket) SetReuseaddr(v bool) error {
	return s.setInt(windows.SOL_SOCKET, windows.SO_REUSEADDR, boolint(v))
}

// Reuseaddr reports SO_REUSEADDR.
func (s *Socket) Reuseaddr() (bool, error) {
	n, err := s.getInt(windows.SOL_SOCKET, windows.SO_REUSEADDR)
	return n != 0, err
}

// SetSendBuffer set the SO_SNDBUF hint in bytes; the value read back
// may be clamped, never expect it to round-trip.
func (s *Socket) SetSendBuffer(bytes int) error {
	return s.setInt(windows.SOL_SOCKET, windows.SO_SNDBUF, bytes)
}

// SendBuffer reports SO_SNDBUF.
func (s *Socket) SendBuffer() (int, error) {
	return s.getInt(windows.SOL_SOCKET, windows.SO_SNDBUF)
}

// SetRecvBuffer set the SO_RCVBUF hint in bytes.
func (s *Socket) SetRecvBuffer(bytes int) error {
	return s.setInt(windows.SOL_SOCKET, windows.SO_RCVBUF, bytes)
}

// RecvBuffer reports SO_RCVBUF.
func (s *Socket) RecvBuffer() (int, error) {
	return s.getInt(windows.SOL_SOCKET, windows.SO_RCVBUF)
}

// SetNodelay set TCP_NODELAY.
func (s *Socket) SetNodelay(v bool) error {
	return s.setInt(windows.IPPROTO_TCP, windows.TCP_NODELAY, boolint(v))
}

// Nodelay reports TCP_NODELAY.
func (s *Socket) Nodelay() (bool, error) {
	n, err := s.getInt(windows.IPPROTO_TCP, windows.TCP_NODELAY)
	return n != 0, err
}

// SetKeepalive set SO_KEEPALIVE.
func (s *Socket) SetKeepalive(v bool) error {
	return s.setInt(windows.SOL_SOCKET, windows.SO_KEEPALIVE, boolint(v))
}

// Keepalive reports SO_KEEPALIVE.
func (s *Socket) Keepalive() (bool, error) {
	n, err := s.getInt(windows.SOL_SOCKET, windows.SO_KEEPALIVE)
	return n != 0, err
}

// SetLinger set SO_LINGER, a negative d disables lingering.
func (s *Socket) SetLinger(d time.Duration) error {
	if s.handle == windows.InvalidHandle {
		return errors.WithStack(ErrClosed)
	}

	var l windows.Linger
	if d >= 0 {
		l.Onoff = 1
		l.Linger = int32(d / time.Second)
	}
	if err := windows.SetsockoptLinger(s.handle, windows.SOL_SOCKET, windows.SO_LINGER, &l); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Linger reports SO_LINGER, -1 when lingering is disabled.
func (s *Socket) Linger() (time.Duration, error) {
	if s.handle == windows.InvalidHandle {
		return 0, errors.WithStack(ErrClosed)
	}

	var l windows.Linger
	var size = int32(unsafe.Sizeof(l))
	err := windows.Getsockopt(s.handle, windows.SOL_SOCKET, windows.SO_LINGER,
		(*byte)(unsafe.Pointer(&l)), &size)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if l.Onoff == 0 {
		return -1, nil
	}
	return time.Duration(l.Linger) * time.Second, nil
}

// SetV6Only set IPV6_V6ONLY, only meaningful for NewV6 sockets.
func (s *Socket) SetV6Only(v bool) error {
	return s.setInt(windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, boolint(v))
}

// V6Only reports IPV6_V6ONLY.
func (s *Socket) V6Only() (bool, error) {
	n, err := s.getInt(windows.IPPROTO_IPV6, windows.IPV6_V6ONLY)
	return n != 0, err
}

// Handle exposes the socket handle without transferring ownership, the
// caller must not close it.
func (s *Socket) Handle() (windows.Handle, error) {
	if s.handle == windows.InvalidHandle {
		return windows.InvalidHandle, errors.WithStack(ErrClosed)
	}
	return s.handle, nil
}

// Detach transfers the handle to the caller and consumes the Socket;
// closing the handle is the caller's duty from now on.
func (s *Socket) Detach() (windows.Handle, error) {
	if s.handle == windows.InvalidHandle {
		return windows.InvalidHandle, errors.WithStack(ErrClosed)
	}
	h := s.handle
	s.handle = windows.InvalidHandle
	return h, nil
}

// SyscallConn returns a control-only syscall.RawConn for configuring
// options not covered by the Socket surface.
func (s *Socket) SyscallConn() (syscall.RawConn, error) {
	if s.handle == windows.InvalidHandle {
		return nil, errors.WithStack(ErrClosed)
	}
	return rawSocket{s}, nil
}

type rawSocket struct{ s *Socket }

func (r rawSocket) Control(f func(fd uintptr)) error {
	if r.s.handle == windows.InvalidHandle {
		return errors.WithStack(ErrClosed)
	}
	f(uintptr(r.s.handle))
	return nil
}

func (r rawSocket) Read(func(fd uintptr) bool) error {
	return errors.WithStack(ErrNotSupport)
}

func (r rawSocket) Write(func(fd uintptr) bool) error {
	return errors.WithStack(ErrNotSupport)
}

// Close closes the handle of a not-consumed Socket; after Detach it is
// a no-op. A close failure is logged and returned.
func (s *Socket) Close() error {
	if s.handle == windows.InvalidHandle {
		return nil
	}
	h := s.handle
	s.handle = windows.InvalidHandle

	if err := windows.Closesocket(h); err != nil {
		err = errors.WithStack(err)
		s.logger().Warn("close tcp socket",
			slog.Uint64("handle", uint64(h)), errorx.TraceAttr(err),
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
	if s.handle == windows.InvalidHandle {
		return "tcp socket (closed)"
	}
	if laddr, err := s.LocalAddr(); err == nil && laddr.Port() != 0 {
		return fmt.Sprintf("tcp socket (handle %d, %s)", s.handle, laddr)
	}
	return fmt.Sprintf("tcp socket (handle %d, %s)", s.handle, familyString(s.family))
}

func (s *Socket) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Uint64("handle", uint64(s.handle)),
		slog.String("family", familyString(s.family)),
	}
	if laddr, err := s.LocalAddr(); err == nil && laddr.Port() != 0 {
		attrs = append(attrs, slog.String("laddr", laddr.String()))
	}
	return slog.GroupValue(attrs...)
}

func familyString(family int) string {
	switch family {
	case windows.AF_INET:
		return "ipv4"
	case windows.AF_INET6:
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
	if cfg.Reuseport {
		// never a silent no-op, the field can be set literally
		return errors.WithStack(ErrNotSupport)
	}
	if cfg.Reuseaddr {
		if err = s.SetReuseaddr(true); err != nil {
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

func (s *Socket) setInt(level, opt, value int) error {
	if s.handle == windows.InvalidHandle {
		return errors.WithStack(ErrClosed)
	}
	if err := windows.SetsockoptInt(s.handle, level, opt, value); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (s *Socket) getInt(level, opt int) (int, error) {
	if s.handle == windows.InvalidHandle {
		return 0, errors.WithStack(ErrClosed)
	}
	n, err := windows.GetsockoptInt(s.handle, level, opt)
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

func sockaddr(addr netip.AddrPort) windows.Sockaddr {
	if a := addr.Addr(); a.Is4() || a.Is4In6() {
		return &windows.SockaddrInet4{Port: int(addr.Port()), Addr: a.As4()}
	} else {
		sa := &windows.SockaddrInet6{Port: int(addr.Port()), Addr: a.As16()}
		if zone := a.Zone(); zone != "" {
			if ifi, err := net.InterfaceByName(zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa
	}
}

func addrPort(sa windows.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *windows.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}

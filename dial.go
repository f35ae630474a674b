package tcpsock

import (
	"context"
	"net"
	"net/netip"
)

// Dial connect raddr with a fresh socket configured by opts.
//
// Equivalent to NewV4/NewV6 by the family of raddr, applying opts, then
// [Socket.Connect].
func Dial(ctx context.Context, raddr netip.AddrPort, opts ...Option) (*net.TCPConn, error) {
	cfg := Options(opts...)

	s, err := newFor(raddr)
	if err != nil {
		return nil, err
	}
	if err := s.apply(cfg); err != nil {
		s.Close()
		return nil, err
	}
	return s.Connect(ctx, raddr)
}

// ListenAddr listen on laddr with a fresh socket configured by opts.
//
// Equivalent to NewV4/NewV6 by the family of laddr, applying opts, then
// [Socket.Bind] and [Socket.Listen] with the configured backlog.
func ListenAddr(laddr netip.AddrPort, opts ...Option) (*net.TCPListener, error) {
	cfg := Options(opts...)

	s, err := newFor(laddr)
	if err != nil {
		return nil, err
	}
	if err := s.apply(cfg); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Bind(laddr); err != nil {
		s.Close()
		return nil, err
	}
	return s.Listen(cfg.Backlog)
}

func newFor(addr netip.AddrPort) (*Socket, error) {
	if a := addr.Addr(); a.Is4() || a.Is4In6() {
		return NewV4()
	}
	return NewV6()
}

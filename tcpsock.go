// Package tcpsock configures a TCP socket before it becomes a
// connection or a listener.
//
// A [Socket] wraps one operating-system socket and lets the caller set
// socket options and explicitly bind a local address before the socket
// is converted, exactly once, into a *net.TCPConn by [Socket.Connect]
// or a *net.TCPListener by [Socket.Listen]. Use it when the defaults
// applied by net.Dialer and net.ListenConfig do not fit, e.g. when the
// reuse options or buffer sizes must be controlled explicitly:
//
//	s, err := tcpsock.NewV4()
//	if err != nil { ... }
//	if err := s.SetReuseaddr(true); err != nil { ... }
//	if err := s.Bind(netip.MustParseAddrPort("127.0.0.1:8080")); err != nil { ... }
//	l, err := s.Listen(1024)
//
// Options not covered by the Socket surface can be set through
// [Socket.SyscallConn], or on a raw descriptor handed over by
// [Socket.Detach].
//
// A Socket owns its descriptor alone and is not safe for concurrent
// use, like any other single-owner file-like resource.
package tcpsock

import "errors"

// ErrClosed is reported by any operation on a Socket that was closed,
// or already consumed by Connect, Listen or Detach.
var ErrClosed = errors.New("tcp socket closed")

// ErrNotSupport is reported by operations the platform cannot provide.
var ErrNotSupport = errors.New("not support")

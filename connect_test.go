//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd
// +build darwin dragonfly freebsd linux netbsd openbsd

package tcpsock_test

import (
	"context"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/lysShub/tcpsock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func Test_Connect_Echo(t *testing.T) {
	l, err := tcpsock.ListenAddr(loopback, tcpsock.Backlog(16))
	require.NoError(t, err)
	defer l.Close()
	laddr := netip.MustParseAddrPort(l.Addr().String())

	var eg errgroup.Group
	eg.Go(func() error {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = io.Copy(conn, conn)
		return err
	})

	s, err := tcpsock.NewV4()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	conn, err := s.Connect(ctx, laddr)
	require.NoError(t, err)

	var msg = []byte("0123456789")
	_, err = conn.Write(msg)
	require.NoError(t, err)

	var b = make([]byte, len(msg))
	_, err = io.ReadFull(conn, b)
	require.NoError(t, err)
	require.Equal(t, msg, b)

	require.NoError(t, conn.Close())
	require.NoError(t, eg.Wait())
}

func Test_Connect_Refused(t *testing.T) {
	// grab a port nothing listens on afterwards
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	raddr := netip.MustParseAddrPort(l.Addr().String())
	require.NoError(t, l.Close())

	s, err := tcpsock.NewV4()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	start := time.Now()
	_, err = s.Connect(ctx, raddr)
	require.Error(t, err)
	require.ErrorIs(t, err, unix.ECONNREFUSED)
	require.Less(t, time.Since(start), time.Second*5)
}

func Test_Connect_Consumes(t *testing.T) {
	l, err := tcpsock.ListenAddr(loopback)
	require.NoError(t, err)
	defer l.Close()
	laddr := netip.MustParseAddrPort(l.Addr().String())
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	s, err := tcpsock.NewV4()
	require.NoError(t, err)
	conn, err := s.Connect(context.Background(), laddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = s.Connect(context.Background(), laddr)
	require.ErrorIs(t, err, tcpsock.ErrClosed)
	_, err = s.Fd()
	require.ErrorIs(t, err, tcpsock.ErrClosed)
}

func Test_Connect_Cancel(t *testing.T) {
	// the descriptor of a cancelled in-flight connect must be closed
	// exactly once, the loop would exhaust descriptors otherwise;
	// 192.0.2.0/24 (TEST-NET-1) blackholes the handshake
	raddr := netip.MustParseAddrPort("192.0.2.1:80")

	for i := 0; i < 64; i++ {
		s, err := tcpsock.NewV4()
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
		_, err = s.Connect(ctx, raddr)
		require.Error(t, err)
		cancel()
	}
}

func Test_Listen_Backlog_Error(t *testing.T) {
	s, err := tcpsock.NewV4()
	require.NoError(t, err)

	// listen without bind gets an ephemeral port from the os
	l, err := s.Listen(1)
	require.NoError(t, err)
	defer l.Close()
	require.NotZero(t, netip.MustParseAddrPort(l.Addr().String()).Port())
}

func Test_Conn_Nettest(t *testing.T) {
	nettest.TestConn(t, func() (c1, c2 net.Conn, stop func(), err error) {
		l, err := tcpsock.ListenAddr(loopback, tcpsock.Nodelay(true))
		if err != nil {
			return nil, nil, nil, err
		}
		laddr := netip.MustParseAddrPort(l.Addr().String())

		var accepted = make(chan net.Conn, 1)
		var acceptErr = make(chan error, 1)
		go func() {
			conn, err := l.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			accepted <- conn
		}()

		c1, err = tcpsock.Dial(context.Background(), laddr)
		if err != nil {
			l.Close()
			return nil, nil, nil, err
		}

		select {
		case c2 = <-accepted:
		case err = <-acceptErr:
			c1.Close()
			l.Close()
			return nil, nil, nil, err
		}

		stop = func() {
			c1.Close()
			c2.Close()
			l.Close()
		}
		return c1, c2, stop, nil
	})
}

func Test_Dial_Options(t *testing.T) {
	l, err := tcpsock.ListenAddr(loopback,
		tcpsock.Reuseaddr(true), tcpsock.RecvBuffer(64<<10), tcpsock.Backlog(8),
	)
	require.NoError(t, err)
	defer l.Close()
	laddr := netip.MustParseAddrPort(l.Addr().String())

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		io.Copy(io.Discard, conn)
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	conn, err := tcpsock.Dial(ctx, laddr,
		tcpsock.Nodelay(true), tcpsock.SendBuffer(64<<10),
	)
	require.NoError(t, err)

	_, err = conn.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

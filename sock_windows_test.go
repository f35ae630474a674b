//go:build windows
// +build windows

package tcpsock_test

import (
	"context"
	"net/netip"
	"testing"

	"github.com/lysShub/tcpsock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func Test_Bind_Configure(t *testing.T) {
	s, err := tcpsock.NewV4()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetReuseaddr(true))
	v, err := s.Reuseaddr()
	require.NoError(t, err)
	require.True(t, v)

	require.NoError(t, s.SetSendBuffer(64<<10))
	n, err := s.SendBuffer()
	require.NoError(t, err)
	require.Positive(t, n)

	require.NoError(t, s.Bind(netip.MustParseAddrPort("127.0.0.1:0")))
	laddr, err := s.LocalAddr()
	require.NoError(t, err)
	require.NotZero(t, laddr.Port())
}

func Test_Transitions_NotSupport(t *testing.T) {
	s, err := tcpsock.NewV4()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Connect(context.Background(), netip.MustParseAddrPort("127.0.0.1:80"))
	require.ErrorIs(t, err, tcpsock.ErrNotSupport)
	_, err = s.Listen(128)
	require.ErrorIs(t, err, tcpsock.ErrNotSupport)
}

func Test_Detach_Handle(t *testing.T) {
	s, err := tcpsock.NewV4()
	require.NoError(t, err)

	h, err := s.Detach()
	require.NoError(t, err)
	defer windows.Closesocket(h)

	_, err = s.Handle()
	require.ErrorIs(t, err, tcpsock.ErrClosed)
	require.NoError(t, s.Close())
}

package tcpsock_test

import (
	"log/slog"
	"testing"

	"github.com/lysShub/tcpsock"
	"github.com/stretchr/testify/require"
)

func Test_Options(t *testing.T) {
	cfg := tcpsock.Options()
	require.Equal(t, 1024, cfg.Backlog)
	require.False(t, cfg.Reuseaddr)
	require.Zero(t, cfg.SendBuffer)

	log := slog.Default()
	cfg = tcpsock.Options(
		tcpsock.Reuseaddr(true),
		tcpsock.SendBuffer(4096),
		tcpsock.RecvBuffer(8192),
		tcpsock.Nodelay(true),
		tcpsock.Backlog(128),
		tcpsock.Logger(log),
	)
	require.True(t, cfg.Reuseaddr)
	require.Equal(t, 4096, cfg.SendBuffer)
	require.Equal(t, 8192, cfg.RecvBuffer)
	require.True(t, cfg.Nodelay)
	require.Equal(t, 128, cfg.Backlog)
	require.Equal(t, log, cfg.Logger)

	// out of range values keep the defaults
	cfg = tcpsock.Options(tcpsock.Backlog(-1), tcpsock.SendBuffer(0))
	require.Equal(t, 1024, cfg.Backlog)
	require.Zero(t, cfg.SendBuffer)
}

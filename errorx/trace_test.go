package errorx_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/pkg/errors"

	"github.com/lysShub/tcpsock/errorx"
	"github.com/stretchr/testify/require"
)

func Test_TraceAttr(t *testing.T) {
	var b bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&b, nil))

	err := c()
	l.Error(err.Error(), errorx.TraceAttr(err))

	require.Contains(t, b.String(), "c-fail")
	require.Contains(t, b.String(), "trace")
	require.Contains(t, b.String(), "trace_test.go")
}

func Test_TraceAttr_NoStack(t *testing.T) {
	attr := errorx.TraceAttr(errors.Unwrap(errors.New("plain"))) // nil error
	require.Equal(t, "trace", attr.Key)
}

func c() error { return b() }

func b() error {
	if e := a(); e != nil {
		return errors.WithMessage(e, "c-fail")
	}
	return nil
}

func a() error {
	return errors.WithStack(errors.New("xxx"))
}

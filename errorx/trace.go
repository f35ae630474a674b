package errorx

import (
	"log/slog"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// TraceAttr get github.com/pkg/errors stack trace as slog.Attr
//
// Example:
//
//	slog.Warn(err.Error(), errorx.TraceAttr(err))
func TraceAttr(err error) slog.Attr {
	type trace interface{ StackTrace() errors.StackTrace }

	// only hit innermost trace
	var t trace
	for e := err; e != nil; e = errors.Unwrap(e) {
		if e1, ok := e.(trace); ok {
			t = e1
		}
	}

	var attrs []slog.Attr
	if t != nil {
		st := t.StackTrace()

		attrs = make([]slog.Attr, 0, len(st))
		for i := 0; i < len(st)-2; i++ {
			attrs = append(attrs, slog.Attr{
				Key:   strconv.Itoa(i),
				Value: position(st[i]),
			})
		}
	}

	return slog.Attr{Key: "trace", Value: slog.GroupValue(attrs...)}
}

func position(f errors.Frame) slog.Value {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return slog.StringValue("")
	}

	file, line := fn.FileLine(pc)
	return slog.StringValue(file + ":" + strconv.Itoa(line))
}

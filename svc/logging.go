package svc

import (
	"context"
	"io"
	"log/slog"
	"os"
)

func Fatal(ctx context.Context, msg string, err error) {
	slog.ErrorContext(ctx, msg, "err", err.Error())
	os.Exit(1)
}

// TraceHandler stamps the retrieval trace id from the context onto every record, so
// the interleaved lines of one bank run correlate across the concurrent listing and
// download goroutines.
type TraceHandler struct {
	slog.Handler
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if trace, ok := ctx.Value("trace").(string); ok {
		r.Add("trace", trace)
	}
	return h.Handler.Handle(ctx, r)
}

var LogWriter io.Writer = os.Stderr

// InitLoggers installs the default logger for a retrieval run, optionally teeing to
// a log file alongside stderr.
func InitLoggers(f *os.File) {
	if f != nil {
		LogWriter = io.MultiWriter(os.Stderr, f)
	}
	handler := slog.NewTextHandler(LogWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}).WithAttrs([]slog.Attr{slog.String("service", "bankops")})
	slog.SetDefault(slog.New(&TraceHandler{handler}))
}

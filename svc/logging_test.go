package svc

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&TraceHandler{slog.NewTextHandler(&buf, nil)})

	ctx := context.WithValue(context.Background(), "trace", "trace-1234")
	logger.InfoContext(ctx, "fetched url", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "trace=trace-1234")
	assert.Contains(t, out, "status=200")

	// records without a trace in context stay untouched.
	buf.Reset()
	logger.InfoContext(context.Background(), "fetched url")
	assert.NotContains(t, buf.String(), "trace=")
}

package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-dashboard/internal/config"
)

func TestStartSpan_ChildInheritsTrace(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "http.request")
	assert.Len(t, parent.TraceID, 32)
	assert.Len(t, parent.SpanID, 16)
	assert.Empty(t, parent.ParentID)

	ctx, child := StartSpan(ctx, "panel.compute")
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.Same(t, child, GetSpan(ctx))

	assert.Nil(t, GetSpan(context.Background()))
}

func TestSpan_Tags(t *testing.T) {
	_, span := StartSpan(context.Background(), "panel.compute")
	span.SetTag("panel", "country-top")
	span.SetTag("panel", "segment-aov")

	v, ok := span.Tag("panel")
	assert.True(t, ok)
	assert.Equal(t, "segment-aov", v)

	_, ok = span.Tag("missing")
	assert.False(t, ok)
}

func TestSpan_EndLogsFailureOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(context.Background(), "panel.compute")
	span.SetTag("panel", "segment-aov")
	span.SetError(nil)
	assert.NoError(t, span.Err())
	span.SetError(errors.New("boom"))
	span.End(ctx, logger)
	span.End(ctx, logger)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "span finished"))
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "panel=segment-aov")
	assert.Greater(t, span.Duration.Nanoseconds(), int64(0))

	_, quiet := StartSpan(context.Background(), "noop")
	quiet.End(context.Background(), nil)
	assert.Greater(t, quiet.Duration.Nanoseconds(), int64(0))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestLogger_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggerConfig{Level: "info", Format: "json"}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx, span := StartSpan(ctx, "http.request")
	logger.InfoContext(ctx, "panel served", "panel", "country-top")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, span.TraceID, rec["trace_id"])
	assert.Equal(t, "country-top", rec["panel"])

	buf.Reset()
	logger.With("component", "cache").InfoContext(ctx, "explicit", "request_id", "given")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "given", rec["request_id"])
	assert.Equal(t, "cache", rec["component"])

	buf.Reset()
	logger.Info("no context")
	rec = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "request_id")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	assert.NotNil(t, NewLogger(config.LoggerConfig{Level: "debug", Format: "text"}))
}

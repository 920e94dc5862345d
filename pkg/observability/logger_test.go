package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
)

func jsonLogger(buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, cfg))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_TraceAndModule(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "v0.3.0"
	cfg.Environment = "ci"
	logger := jsonLogger(&buf, cfg)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = observability.WithModule(ctx, "src/app.ts")

	logger.WarnContext(ctx, "duplicate default export", "line", 2)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "src/app.ts", record["module"])
	assert.Equal(t, "modwrap", record["service"])
	assert.Equal(t, "v0.3.0", record["version"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "cli", record["mode"])
	assert.InDelta(t, 2, record["line"], 0)
}

func TestTracingHandler_PlainContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeLibrary
	jsonLogger(&buf, cfg).InfoContext(context.Background(), "batch done")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "module")
	assert.NotContains(t, record, "version")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "library", record["mode"])
}

func TestTracingHandler_GroupsKeepServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := jsonLogger(&buf, observability.DefaultConfig()).With("op", "wrap").WithGroup("cache")
	logger.InfoContext(context.Background(), "snapshot loaded", "entries", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "modwrap", record["service"])
	assert.Equal(t, "wrap", record["op"])

	group, ok := record["cache"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["entries"], 0)
}

func TestModuleFromContext(t *testing.T) {
	t.Parallel()

	_, ok := observability.ModuleFromContext(context.Background())
	assert.False(t, ok)

	name, ok := observability.ModuleFromContext(observability.WithModule(context.Background(), "a.js"))
	assert.True(t, ok)
	assert.Equal(t, "a.js", name)
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(&buf, cfg)
	logger.Info("dropped")
	logger.Warn("kept")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "kept", record["msg"])
}

func TestNewLogger_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	observability.NewLogger(&buf, observability.DefaultConfig()).Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "service=modwrap")
}

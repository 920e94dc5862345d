package observability_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
)

func TestInit_NoopWithoutEndpoint(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	providers, err := observability.Init(context.Background(), observability.DefaultConfig(), &logs)
	require.NoError(t, err)

	_, span := providers.Tracer.Start(context.Background(), observability.SpanCompile)
	span.End()
	assert.False(t, span.SpanContext().IsValid())

	providers.Logger.Info("ready")
	assert.Contains(t, logs.String(), "msg=ready")

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WithEndpoint(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.OTLPEndpoint = "127.0.0.1:1"
	cfg.OTLPInsecure = true
	cfg.OTLPHeaders = map[string]string{"x-team": "web"}
	cfg.TraceAll = true
	cfg.ShutdownTimeout = 50 * time.Millisecond

	var logs bytes.Buffer

	providers, err := observability.Init(context.Background(), cfg, &logs)
	require.NoError(t, err)

	ctx, compile := providers.Tracer.Start(context.Background(), observability.SpanCompile)
	assert.True(t, compile.SpanContext().IsValid())

	// Stage spans are suppressed but keep the compile trace.
	stageCtx, stage := providers.Tracer.Start(ctx, observability.SpanParse)
	assert.Equal(t, compile.SpanContext().TraceID(), trace.SpanContextFromContext(stageCtx).TraceID())
	stage.End()
	compile.End()

	// The collector is unreachable, so only the bounded shutdown matters.
	start := time.Now()
	_ = providers.Shutdown(context.Background())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBuildResource(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeLibrary
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "ci"

	res, err := observability.BuildResource(cfg)
	require.NoError(t, err)

	attrs := make(map[string]string)
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "modwrap", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "ci", attrs["deployment.environment"])
	assert.Equal(t, "library", attrs["app.mode"])
}

func TestTraceSampler(t *testing.T) {
	t.Parallel()

	// The ratio sampler compares the low 8 bytes of the trace id.
	low := trace.TraceID{0: 1}
	high := trace.TraceID{8: 0xff, 9: 0xff, 10: 0xff, 11: 0xff, 12: 0xff, 13: 0xff, 14: 0xff, 15: 0xff}

	tests := []struct {
		name     string
		ratio    float64
		all      bool
		wantLow  bool
		wantHigh bool
	}{
		{name: "default keeps all", wantLow: true, wantHigh: true},
		{name: "full ratio", ratio: 1, wantLow: true, wantHigh: true},
		{name: "half ratio", ratio: 0.5, wantLow: true, wantHigh: false},
		{name: "trace all overrides ratio", ratio: 0.01, all: true, wantLow: true, wantHigh: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := observability.DefaultConfig()
			cfg.SampleRatio = tt.ratio
			cfg.TraceAll = tt.all

			assert.Equal(t, tt.wantLow, observability.RootSampled(cfg, low))
			assert.Equal(t, tt.wantHigh, observability.RootSampled(cfg, high))
		})
	}
}

package compiler_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/modwrap/pkg/cache"
	"github.com/Sumatoshi-tech/modwrap/pkg/compiler"
	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/modhash"
	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

const appSource = `import { a } from "lib";
import type { T } from "types";
export const b = a + 1;
`

func newCompiler(t *testing.T, opts ...compiler.Option) *compiler.Compiler {
	t.Helper()

	c, err := compiler.New(opts...)
	require.NoError(t, err)

	return c
}

func TestCompile_Output(t *testing.T) {
	t.Parallel()

	out, err := newCompiler(t).Compile(context.Background(), "app.ts", []byte(appSource))
	require.NoError(t, err)

	assert.Equal(t, "app.ts", out.Name)
	assert.Equal(t, esm.DialectTypeScript, out.Dialect)
	assert.Equal(t, []rewrite.ImportRecord{{Namespace: "_i0", Hash: "lib", Path: "lib"}}, out.Imports)
	assert.Equal(t, []string{"b"}, out.Exports)
	assert.Equal(t, []string{"types"}, out.Excluded)
	assert.False(t, out.Cached)
	assert.Contains(t, out.Code, `var _i0 = __imp("lib", "lib") || { __esModule: true };`)
	assert.NotContains(t, out.Code, `"types"`)
}

func TestCompile_MatchesEngine(t *testing.T) {
	t.Parallel()

	src := []byte(appSource)

	mod, err := esm.NewParser().Parse(context.Background(), "app.ts", src)
	require.NoError(t, err)

	res, err := rewrite.Compile(mod, rewrite.DefaultConfig())
	require.NoError(t, err)

	out, err := newCompiler(t).Compile(context.Background(), "app.ts", src)
	require.NoError(t, err)

	assert.Equal(t, res.Code(), out.Code)
}

func TestCompile_ModuleHashAndStrategy(t *testing.T) {
	t.Parallel()

	hash, err := modhash.SHA256(8)
	require.NoError(t, err)

	cfg := rewrite.DefaultConfig()
	cfg.Strategy = rewrite.StrategyLive

	c := newCompiler(t, compiler.WithConfig(cfg), compiler.WithModuleHash("sha256:8", hash))
	assert.Equal(t, rewrite.StrategyLive, c.Strategy())

	out, err := c.Compile(context.Background(), "app.js", []byte(`import { a } from "lib";`))
	require.NoError(t, err)

	require.Len(t, out.Imports, 1)
	assert.Equal(t, hash("lib"), out.Imports[0].Hash)
	assert.Contains(t, out.Code, "r.r(e);")
}

func TestNew_ModuleHashSurvivesLaterConfig(t *testing.T) {
	t.Parallel()

	hash, err := modhash.SHA256(8)
	require.NoError(t, err)

	lru := cache.New(0)
	c := newCompiler(t,
		compiler.WithCache(lru),
		compiler.WithModuleHash("sha256:8", hash),
		compiler.WithConfig(rewrite.DefaultConfig()),
	)

	src := []byte(`import { a } from "lib";`)

	out, err := c.Compile(context.Background(), "app.js", src)
	require.NoError(t, err)
	require.Len(t, out.Imports, 1)
	assert.Equal(t, hash("lib"), out.Imports[0].Hash)

	again, err := c.Compile(context.Background(), "app.js", src)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, out.Code, again.Code)
}

func TestNew_UnnamedHashDisablesCache(t *testing.T) {
	t.Parallel()

	lru := cache.New(0)
	cfg := rewrite.DefaultConfig()
	cfg.ModuleHash = func(path string) string { return "x-" + path }

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := newCompiler(t, compiler.WithCache(lru), compiler.WithConfig(cfg), compiler.WithLogger(logger))

	src := []byte(`import { a } from "lib";`)

	for range 2 {
		out, err := c.Compile(context.Background(), "app.js", src)
		require.NoError(t, err)
		assert.False(t, out.Cached)
		assert.Equal(t, "x-lib", out.Imports[0].Hash)
	}

	assert.Equal(t, 0, lru.Stats().Entries)
	assert.Contains(t, buf.String(), "output cache disabled")
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := compiler.New(compiler.WithConfig(rewrite.Config{Strategy: "eager"}))
	require.ErrorIs(t, err, rewrite.ErrUnknownStrategy)
}

func TestCompile_UnsupportedFile(t *testing.T) {
	t.Parallel()

	_, err := newCompiler(t).Compile(context.Background(), "notes.txt", []byte("plain words\n"))
	require.ErrorIs(t, err, esm.ErrUnsupportedDialect)
}

func TestCompile_ForcedDialect(t *testing.T) {
	t.Parallel()

	c := newCompiler(t, compiler.WithDialect(esm.DialectTypeScript))

	out, err := c.Compile(context.Background(), "-", []byte("import type { T } from \"./t\";\nexport const x = 1;\n"))
	require.NoError(t, err)

	assert.Equal(t, esm.DialectTypeScript, out.Dialect)
	assert.Empty(t, out.Imports)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, rewrite.SeverityInfo, out.Diagnostics[0].Severity)
	assert.Equal(t, 0, out.Warnings())
}

func TestCompile_CacheHit(t *testing.T) {
	t.Parallel()

	lru := cache.New(0)
	c := newCompiler(t, compiler.WithCache(lru))
	ctx := context.Background()

	first, err := c.Compile(ctx, "app.ts", []byte(appSource))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Compile(ctx, "copy.ts", []byte(appSource))
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, "copy.ts", second.Name)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Imports, second.Imports)
	assert.Equal(t, first.Exports, second.Exports)
	assert.Equal(t, first.Excluded, second.Excluded)

	stats := lru.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCompile_CacheKeyCoversConfig(t *testing.T) {
	t.Parallel()

	lru := cache.New(0)
	ctx := context.Background()

	live := rewrite.DefaultConfig()
	live.Strategy = rewrite.StrategyLive

	static := newCompiler(t, compiler.WithCache(lru))
	dynamic := newCompiler(t, compiler.WithCache(lru), compiler.WithConfig(live))

	a, err := static.Compile(ctx, "app.js", []byte(`export const x = 1;`))
	require.NoError(t, err)

	b, err := dynamic.Compile(ctx, "app.js", []byte(`export const x = 1;`))
	require.NoError(t, err)

	assert.False(t, b.Cached)
	assert.NotEqual(t, a.Code, b.Code)

	tsMode := newCompiler(t, compiler.WithCache(lru), compiler.WithDialect(esm.DialectTypeScript))

	c, err := tsMode.Compile(ctx, "app.js", []byte(`export const x = 1;`))
	require.NoError(t, err)
	assert.False(t, c.Cached)
}

func TestCompile_Spans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	c := newCompiler(t, compiler.WithTracer(tp.Tracer("test")))

	_, err := c.Compile(context.Background(), "app.ts", []byte(appSource))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 4)

	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{
		observability.SpanParse,
		observability.SpanRewrite,
		observability.SpanPrint,
		observability.SpanCompile,
	}, names)

	root := spans[3]
	for _, child := range spans[:3] {
		assert.Equal(t, root.SpanContext.SpanID(), child.Parent.SpanID())
	}

	assert.Contains(t, root.Attributes, attribute.String(observability.AttrFileName, "app.ts"))
	assert.Contains(t, root.Attributes, attribute.Int(observability.AttrImports, 1))
	assert.Contains(t, root.Attributes, attribute.Bool(observability.AttrCacheHit, false))
}

func TestCompile_SpanRecordsError(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	c := newCompiler(t, compiler.WithTracer(tp.Tracer("test")))

	_, err := c.Compile(context.Background(), "notes.txt", []byte("plain words\n"))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("error.type", observability.ErrTypeValidation))
}

func TestCompile_Metrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	metrics, err := observability.NewCompileMetrics(mp.Meter("test"))
	require.NoError(t, err)

	c := newCompiler(t, compiler.WithMetrics(metrics), compiler.WithCache(cache.New(0)))
	ctx := context.Background()

	for range 2 {
		_, err = c.Compile(ctx, "app.ts", []byte(appSource))
		require.NoError(t, err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), counterTotal(t, rm, "modwrap.compile.files.total"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "modwrap.compile.imports.total"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "modwrap.cache.hits.total"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "modwrap.cache.misses.total"))
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, name)

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}

			return total
		}
	}

	t.Fatalf("metric %s not found", name)

	return 0
}

func TestCompile_LogsDiagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := observability.NewLogger(&buf, observability.Config{LogLevel: slog.LevelDebug})
	c := newCompiler(t, compiler.WithLogger(logger))

	out, err := c.Compile(context.Background(), "dup.js", []byte("export default 1;\nexport default 2;\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Warnings())

	logged := buf.String()
	assert.Contains(t, logged, "level=WARN")
	assert.Contains(t, logged, `msg="duplicate default export"`)
	assert.Contains(t, logged, "module=dup.js")
	assert.Contains(t, logged, "line=2")
	assert.Contains(t, logged, "column=1")
}

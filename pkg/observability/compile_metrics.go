package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal       = "modwrap.compile.files.total"
	metricCompileDuration  = "modwrap.compile.duration.seconds"
	metricImportsTotal     = "modwrap.compile.imports.total"
	metricExcludedTotal    = "modwrap.compile.excluded.total"
	metricDiagnosticsTotal = "modwrap.compile.diagnostics.total"
	metricCacheHitsTotal   = "modwrap.cache.hits.total"
	metricCacheMissesTotal = "modwrap.cache.misses.total"

	attrStrategy = "strategy"
	attrStatus   = "status"
	attrSeverity = "severity"

	statusOK    = "ok"
	statusError = "error"
)

// compileBucketBoundaries covers 100us to 10s: single modules compile in
// well under a millisecond, generated bundles can take seconds.
var compileBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// CompileMetrics holds OTel instruments for compilations.
type CompileMetrics struct {
	filesTotal       metric.Int64Counter
	compileDuration  metric.Float64Histogram
	importsTotal     metric.Int64Counter
	excludedTotal    metric.Int64Counter
	diagnosticsTotal metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
}

// CompileStats describes one finished compilation.
type CompileStats struct {
	Strategy    string
	Duration    time.Duration
	Imports     int
	Excluded    int
	Warnings    int
	Infos       int
	CacheHit    bool
	CacheLookup bool
	Err         error
}

// NewCompileMetrics creates compile metric instruments from the given meter.
func NewCompileMetrics(mt metric.Meter) (*CompileMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Modules compiled"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricCompileDuration,
		metric.WithDescription("Per-module compile duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(compileBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCompileDuration, err)
	}

	imports, err := mt.Int64Counter(metricImportsTotal,
		metric.WithDescription("Hoisted dependency imports"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricImportsTotal, err)
	}

	excluded, err := mt.Int64Counter(metricExcludedTotal,
		metric.WithDescription("Import sources dropped by the exclusion set"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricExcludedTotal, err)
	}

	diagnostics, err := mt.Int64Counter(metricDiagnosticsTotal,
		metric.WithDescription("Compile diagnostics by severity"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiagnosticsTotal, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Output cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissesTotal,
		metric.WithDescription("Output cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissesTotal, err)
	}

	return &CompileMetrics{
		filesTotal:       files,
		compileDuration:  duration,
		importsTotal:     imports,
		excludedTotal:    excluded,
		diagnosticsTotal: diagnostics,
		cacheHits:        hits,
		cacheMisses:      misses,
	}, nil
}

// Record records one compilation. Safe to call on a nil receiver (no-op).
func (cm *CompileMetrics) Record(ctx context.Context, stats CompileStats) {
	if cm == nil {
		return
	}

	status := statusOK
	if stats.Err != nil {
		status = statusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStrategy, stats.Strategy),
		attribute.String(attrStatus, status),
	)

	cm.filesTotal.Add(ctx, 1, attrs)
	cm.compileDuration.Record(ctx, stats.Duration.Seconds(), attrs)

	if stats.CacheLookup {
		if stats.CacheHit {
			cm.cacheHits.Add(ctx, 1)
		} else {
			cm.cacheMisses.Add(ctx, 1)
		}
	}

	if stats.Err != nil {
		return
	}

	cm.importsTotal.Add(ctx, int64(stats.Imports))
	cm.excludedTotal.Add(ctx, int64(stats.Excluded))
	cm.diagnosticsTotal.Add(ctx, int64(stats.Warnings), metric.WithAttributes(attribute.String(attrSeverity, "warning")))
	cm.diagnosticsTotal.Add(ctx, int64(stats.Infos), metric.WithAttributes(attribute.String(attrSeverity, "info")))
}

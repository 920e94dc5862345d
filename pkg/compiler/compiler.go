// Package compiler runs the parse, rewrite and print pipeline that turns a
// module source into a loader factory, for single modules and for batches.
package compiler

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modwrap/pkg/cache"
	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
	"github.com/Sumatoshi-tech/modwrap/pkg/version"
)

// identityHashID names the default module hash in cache fingerprints.
const identityHashID = "identity"

// Compiler compiles modules with one fixed configuration. It is safe for
// concurrent use; every compilation gets its own rewrite context.
type Compiler struct {
	parser  *esm.Parser
	cfg     rewrite.Config
	hash    rewrite.HashFunc
	hashID  string
	dialect esm.Dialect
	cache   *cache.LRU
	tracer  trace.Tracer
	metrics *observability.CompileMetrics
	logger  *slog.Logger

	fingerprint []byte
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithConfig sets the rewrite configuration. A hash set with WithModuleHash
// replaces cfg.ModuleHash whatever the option order. Any other hash than
// rewrite.IdentityHash in cfg disables the output cache, because cache keys
// cannot tell it apart.
func WithConfig(cfg rewrite.Config) Option {
	return func(c *Compiler) { c.cfg = cfg }
}

// WithModuleHash sets the module hash function. id identifies it in cache
// keys and must change whenever the function's results would.
func WithModuleHash(id string, hash rewrite.HashFunc) Option {
	return func(c *Compiler) {
		c.hashID = id
		c.hash = hash
	}
}

// WithDialect forces a grammar instead of detecting it from the file name.
func WithDialect(dialect esm.Dialect) Option {
	return func(c *Compiler) { c.dialect = dialect }
}

// WithCache enables the output cache.
func WithCache(lru *cache.LRU) Option {
	return func(c *Compiler) { c.cache = lru }
}

// WithTracer sets the tracer. The default is the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Compiler) { c.tracer = tracer }
}

// WithMetrics enables compile metrics.
func WithMetrics(metrics *observability.CompileMetrics) Option {
	return func(c *Compiler) { c.metrics = metrics }
}

// WithLogger sets the logger diagnostics are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// New creates a Compiler. The configuration is validated once here.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		parser: esm.NewParser(),
		cfg:    rewrite.DefaultConfig(),
		hashID: identityHashID,
	}

	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.hash != nil:
		c.cfg.ModuleHash = c.hash
	case c.cfg.ModuleHash != nil && !isIdentity(c.cfg.ModuleHash):
		c.hashID = ""
	}

	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	if c.cfg.Strategy == "" {
		c.cfg.Strategy = rewrite.StrategyStatic
	}

	if c.tracer == nil {
		c.tracer = otel.Tracer(observability.TracerName)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.hashID == "" && c.cache != nil {
		c.logger.Warn("output cache disabled: module hash has no id, set it with WithModuleHash")

		c.cache = nil
	}

	c.fingerprint = c.configFingerprint()

	return c, nil
}

func isIdentity(hash rewrite.HashFunc) bool {
	return reflect.ValueOf(hash).Pointer() == reflect.ValueOf(rewrite.IdentityHash).Pointer()
}

// Strategy returns the export strategy the compiler emits.
func (c *Compiler) Strategy() rewrite.Strategy { return c.cfg.Strategy }

// configFingerprint serializes every setting that changes the emitted code.
func (c *Compiler) configFingerprint() []byte {
	exclude := slices.Clone(c.cfg.Exclude)
	slices.Sort(exclude)

	// Cache snapshots outlive the process, so the build is part of the key.
	parts := []string{
		version.Version,
		version.Commit,
		string(c.cfg.Strategy),
		c.cfg.DiagnosticTag,
		c.hashID,
		string(c.dialect),
		strings.Join(exclude, "\x00"),
	}

	// A nil exclude list means the default set, an empty one means none.
	if c.cfg.Exclude == nil {
		parts = append(parts, "default-exclude")
	}

	return []byte(strings.Join(parts, "\x01"))
}

// Compile compiles one module. name selects the dialect unless one was forced
// and labels diagnostics.
func (c *Compiler) Compile(ctx context.Context, name string, src []byte) (*Output, error) {
	ctx = observability.WithModule(ctx, name)

	ctx, span := c.tracer.Start(ctx, observability.SpanCompile,
		trace.WithAttributes(
			attribute.String(observability.AttrFileName, name),
			attribute.Int(observability.AttrFileSize, len(src)),
			attribute.String(observability.AttrStrategy, string(c.cfg.Strategy)),
		))
	defer span.End()

	start := time.Now()

	out, stats, err := c.compile(ctx, name, src)

	stats.Strategy = string(c.cfg.Strategy)
	stats.Duration = time.Since(start)
	stats.Err = err
	c.metrics.Record(ctx, stats)

	if err != nil {
		observability.RecordSpanError(span, err, classify(err), observability.ErrSourceInput)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(observability.AttrDialect, string(out.Dialect)),
		attribute.Int(observability.AttrImports, len(out.Imports)),
		attribute.Int(observability.AttrExports, len(out.Exports)),
		attribute.Int(observability.AttrExcluded, len(out.Excluded)),
		attribute.Int(observability.AttrDiagnostics, len(out.Diagnostics)),
		attribute.Bool(observability.AttrCacheHit, out.Cached),
	)

	c.logDiagnostics(ctx, out)

	return out, nil
}

func (c *Compiler) compile(ctx context.Context, name string, src []byte) (*Output, observability.CompileStats, error) {
	var stats observability.CompileStats

	dialect := c.dialect
	if dialect == "" {
		detected, err := esm.DetectDialect(name, src)
		if err != nil {
			return nil, stats, err
		}

		dialect = detected
	}

	var key cache.Key

	if c.cache != nil {
		key = cache.NewKey(c.fingerprint, []byte(dialect), src)
		stats.CacheLookup = true

		if out, ok := c.lookup(ctx, name, key); ok {
			stats.CacheHit = true
			fillStats(&stats, out)

			return out, stats, nil
		}
	}

	parseCtx, parseSpan := c.tracer.Start(ctx, observability.SpanParse)
	mod, err := c.parser.ParseDialect(parseCtx, name, dialect, src)
	parseSpan.End()

	if err != nil {
		return nil, stats, err
	}

	_, rewriteSpan := c.tracer.Start(ctx, observability.SpanRewrite,
		trace.WithAttributes(attribute.Int(observability.AttrStatements, len(mod.Body))))
	res, err := rewrite.Compile(mod, c.cfg)
	rewriteSpan.End()

	if err != nil {
		return nil, stats, err
	}

	_, printSpan := c.tracer.Start(ctx, observability.SpanPrint)
	code := res.Code()
	printSpan.End()

	out := newOutput(name, dialect, code, res)
	fillStats(&stats, out)

	if c.cache != nil {
		c.store(ctx, key, out)
	}

	return out, stats, nil
}

func (c *Compiler) lookup(ctx context.Context, name string, key cache.Key) (*Output, bool) {
	payload, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	out, err := decodeOutput(name, payload)
	if err != nil {
		c.logger.WarnContext(ctx, "discarding cache entry", "key", key.String(), "error", err)

		return nil, false
	}

	return out, true
}

func (c *Compiler) store(ctx context.Context, key cache.Key, out *Output) {
	payload, err := encodeOutput(out)
	if err != nil {
		c.logger.WarnContext(ctx, "not caching output", "error", err)

		return
	}

	c.cache.Put(key, payload)
}

func (c *Compiler) logDiagnostics(ctx context.Context, out *Output) {
	for _, d := range out.Diagnostics {
		level := slog.LevelWarn
		if d.Severity == rewrite.SeverityInfo {
			level = slog.LevelDebug
		}

		c.logger.Log(ctx, level, d.Message, "line", d.Line, "column", d.Column)
	}
}

func fillStats(stats *observability.CompileStats, out *Output) {
	stats.Imports = len(out.Imports)
	stats.Excluded = len(out.Excluded)

	for _, d := range out.Diagnostics {
		if d.Severity == rewrite.SeverityWarning {
			stats.Warnings++
		} else {
			stats.Infos++
		}
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.ErrTypeCanceled
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission),
		errors.Is(err, ErrDirectoryPath), errors.Is(err, ErrEmptyPath), errors.Is(err, ErrPathContainsNUL):
		return observability.ErrTypeIO
	case errors.Is(err, esm.ErrUnsupportedDialect), errors.Is(err, rewrite.ErrUnknownStrategy):
		return observability.ErrTypeValidation
	default:
		return observability.ErrTypeParse
	}
}

package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys added by the handler.
const (
	logTraceID = "trace_id"
	logSpanID  = "span_id"
	logModule  = "module"
	logService = "service"
	logVersion = "version"
	logEnv     = "env"
	logMode    = "mode"
)

type moduleKey struct{}

// WithModule labels ctx with the module being compiled. Records logged with
// the returned context carry a module attribute.
func WithModule(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, moduleKey{}, name)
}

// ModuleFromContext returns the module label set by WithModule.
func ModuleFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(moduleKey{}).(string)

	return name, ok
}

// contextHandler adds the span and module of the record's context. Service
// metadata is attached once to the inner handler, so it stays top level when
// groups are opened.
type contextHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with trace, module and service attributes
// taken from cfg.
func NewTracingHandler(inner slog.Handler, cfg Config) slog.Handler {
	attrs := []slog.Attr{
		slog.String(logService, cfg.ServiceName),
		slog.String(logMode, string(cfg.Mode)),
	}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, slog.String(logVersion, cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, slog.String(logEnv, cfg.Environment))
	}

	return &contextHandler{inner: inner.WithAttrs(attrs)}
}

// NewLogger builds the text or JSON logger described by cfg, writing to w.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg))
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if name, ok := ModuleFromContext(ctx); ok {
		record.AddAttrs(slog.String(logModule, name))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(logTraceID, sc.TraceID().String()),
			slog.String(logSpanID, sc.SpanID().String()),
		)
	}

	return h.inner.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{inner: h.inner.WithGroup(name)}
}

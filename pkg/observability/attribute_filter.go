package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanFilter forwards finished spans with every attribute outside the
// compiler's own key set removed. Module source or generated code attached
// by an embedding program never reaches the exporter.
type spanFilter struct {
	next   sdktrace.SpanProcessor
	logger *slog.Logger

	// reported holds the dropped keys already logged.
	reported sync.Map
}

// NewAttributeFilter wraps next so that only the Attr* keys are exported.
// A non-nil logger gets one warning per dropped key.
func NewAttributeFilter(next sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &spanFilter{next: next, logger: logger}
}

func (f *spanFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, s)
}

func (f *spanFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.next.OnEnd(&trimmedSpan{ReadOnlySpan: s, attrs: f.keep(s.Attributes())})
}

func (f *spanFilter) Shutdown(ctx context.Context) error {
	if err := f.next.Shutdown(ctx); err != nil {
		return fmt.Errorf("span filter shutdown: %w", err)
	}

	return nil
}

func (f *spanFilter) ForceFlush(ctx context.Context) error {
	if err := f.next.ForceFlush(ctx); err != nil {
		return fmt.Errorf("span filter flush: %w", err)
	}

	return nil
}

func (f *spanFilter) keep(attrs []attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]

	for _, kv := range attrs {
		key := string(kv.Key)
		if exportedAttrs[key] {
			kept = append(kept, kv)

			continue
		}

		if _, seen := f.reported.LoadOrStore(key, struct{}{}); !seen && f.logger != nil {
			f.logger.Warn("span attribute dropped", "key", key)
		}
	}

	return kept
}

// trimmedSpan is a finished span with a reduced attribute list.
type trimmedSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

func (s *trimmedSpan) Attributes() []attribute.KeyValue { return s.attrs }

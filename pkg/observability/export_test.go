package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// BuildResource exposes buildResource for testing.
func BuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(context.Background(), cfg)
}

// RootSampled reports whether the sampler built from cfg keeps a root span
// with the given trace id.
func RootSampled(cfg Config, traceID trace.TraceID) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(traceSampler(cfg)),
		sdktrace.WithIDGenerator(fixedIDs{traceID: traceID}),
	)

	_, span := tp.Tracer("test").Start(context.Background(), SpanCompile)
	span.End()

	return len(exporter.GetSpans()) > 0
}

type fixedIDs struct {
	traceID trace.TraceID
}

func (g fixedIDs) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, trace.SpanID{1}
}

func (g fixedIDs) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return trace.SpanID{2}
}

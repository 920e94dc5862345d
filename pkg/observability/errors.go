package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	ErrTypeParse      = "parse"
	ErrTypeValidation = "validation"
	ErrTypeIO         = "io"
	ErrTypeCanceled   = "canceled"
	ErrTypeInternal   = "internal"
)

// Error origin values for the error.source span attribute.
const (
	ErrSourceInput    = "input"
	ErrSourceConfig   = "config"
	ErrSourceInternal = "internal"
)

// RecordSpanError marks span as failed with err and tags it with the error
// classification. An empty source is omitted.
func RecordSpanError(span trace.Span, err error, errType, source string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []attribute.KeyValue{attribute.String(AttrErrorType, errType)}
	if source != "" {
		attrs = append(attrs, attribute.String(AttrErrorSource, source))
	}

	span.SetAttributes(attrs...)
}

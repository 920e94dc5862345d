// Package observability wires OpenTelemetry tracing and metrics and the
// structured slog logger used by the modwrap CLI and library.
package observability

import (
	"log/slog"
	"time"
)

// AppMode identifies how the compiler was launched.
type AppMode string

const (
	// ModeCLI is a modwrap command invocation.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an embedding program calling pkg/compiler directly.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName     = "modwrap"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Environment tags the resource and every log record (e.g. "ci").
	Environment string
	Mode        AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// SampleRatio is the fraction of root traces kept. Zero keeps all.
	SampleRatio float64
	// TraceAll keeps every trace regardless of SampleRatio and logs the
	// span attributes the filter drops.
	TraceAll bool
	// TraceStages keeps the parse, rewrite and print spans of every file.
	TraceStages bool

	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeout bounds the final flush.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

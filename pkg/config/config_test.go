package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modwrap/pkg/config"
	"github.com/Sumatoshi-tech/modwrap/pkg/modhash"
	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".modwrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)

	maxBytes, err := cfg.CacheMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64_000_000), maxBytes)
}

func TestLoadConfig_FromFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `
exclude: [types, "@types/node"]
strategy: live
diagnostic_tag: Loader
hash:
  mode: sha256
  length: 10
cache:
  enabled: false
  max_size: 1GiB
  dir: /var/cache/modwrap
workers: 4
logging:
  level: debug
  json: true
observability:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  otlp_headers: "api-key=abc%3D,tenant=ci"
  environment: ci
  sample_ratio: 0.25
  trace_stages: true
  shutdown_timeout: 2s
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"types", "@types/node"}, cfg.Exclude)
	assert.Equal(t, "live", cfg.Strategy)
	assert.Equal(t, "Loader", cfg.DiagnosticTag)
	assert.Equal(t, config.HashConfig{Mode: "sha256", Length: 10}, cfg.Hash)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "/var/cache/modwrap", cfg.Cache.Dir)
	assert.Equal(t, 4, cfg.Workers)

	maxBytes, err := cfg.CacheMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), maxBytes)

	obs, err := cfg.ObservabilityConfig("v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"api-key": "abc=", "tenant": "ci"}, obs.OTLPHeaders)
	assert.Equal(t, "ci", obs.Environment)
	assert.InDelta(t, 0.25, obs.SampleRatio, 1e-9)
	assert.True(t, obs.TraceStages)
	assert.False(t, obs.TraceAll)
	assert.Equal(t, 2*time.Second, obs.ShutdownTimeout)
	assert.True(t, obs.OTLPInsecure)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.Equal(t, "v1.2.3", obs.ServiceVersion)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"strategy", "strategy: eager\n", rewrite.ErrUnknownStrategy},
		{"hash mode", "hash:\n  mode: md5\n", modhash.ErrUnknownMode},
		{"manifest path", "hash:\n  mode: manifest\n", modhash.ErrMissingManifest},
		{"workers", "workers: -1\n", config.ErrInvalidWorkers},
		{"cache size", "cache:\n  max_size: lots\n", config.ErrInvalidCacheSize},
		{"log level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"exclude", "exclude: [\"\"]\n", config.ErrEmptyExclude},
		{"sample ratio", "observability:\n  sample_ratio: 1.5\n", config.ErrInvalidSampleRatio},
		{"shutdown timeout", "observability:\n  shutdown_timeout: soon\n", config.ErrInvalidShutdownTimeout},
		{"otlp headers", "observability:\n  otlp_headers: novalue\n", observability.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "strategy: [live\n"))
	require.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MODWRAP_STRATEGY", "live")
	t.Setenv("MODWRAP_HASH_LENGTH", "6")

	cfg, err := config.LoadConfig(writeConfig(t, "hash:\n  mode: sha256\n"))
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Strategy)
	assert.Equal(t, 6, cfg.Hash.Length)
}

func TestRewriteConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Strategy = "live"
	cfg.Hash = config.HashConfig{Mode: "sha256", Length: 8}

	rc, err := cfg.RewriteConfig()
	require.NoError(t, err)

	assert.Equal(t, rewrite.StrategyLive, rc.Strategy)
	assert.Equal(t, []string{rewrite.DefaultExclude}, rc.Exclude)
	assert.Len(t, rc.ModuleHash("react"), 8)

	cfg.Exclude = nil

	rc, err = cfg.RewriteConfig()
	require.NoError(t, err)
	assert.NotNil(t, rc.Exclude)
	assert.Empty(t, rc.Exclude)
}

func TestObservabilityConfig_Defaults(t *testing.T) {
	t.Parallel()

	obs, err := config.Default().ObservabilityConfig("dev")
	require.NoError(t, err)

	assert.Equal(t, observability.ModeCLI, obs.Mode)
	assert.Nil(t, obs.OTLPHeaders)
	assert.Equal(t, 5*time.Second, obs.ShutdownTimeout)
	assert.Equal(t, slog.LevelInfo, obs.LogLevel)
}

func TestLoadConfig_ObservabilityEnv(t *testing.T) {
	t.Setenv("MODWRAP_OBSERVABILITY_OTLP_HEADERS", "authorization=Bearer%20x")
	t.Setenv("MODWRAP_OBSERVABILITY_TRACE_ALL", "true")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	obs, err := cfg.ObservabilityConfig("dev")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authorization": "Bearer x"}, obs.OTLPHeaders)
	assert.True(t, obs.TraceAll)
}

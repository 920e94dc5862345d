package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modwrap/pkg/cache"
	"github.com/Sumatoshi-tech/modwrap/pkg/compiler"
	"github.com/Sumatoshi-tech/modwrap/pkg/config"
	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/observability"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
	"github.com/Sumatoshi-tech/modwrap/pkg/version"
)

// compileFlags are the per-command overrides of the config file.
type compileFlags struct {
	strategy string
	exclude  []string
	hashMode string
	manifest string
	hashLen  int
	workers  int
	diagTag  string
	dialect  string
	noCache  bool
}

func (f *compileFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.strategy, "strategy", "", "export strategy (static, live)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "import source to drop (repeatable; replaces the configured set)")
	flags.StringVar(&f.hashMode, "hash", "", "module hash (identity, sha256, manifest)")
	flags.StringVar(&f.manifest, "manifest", "", "hash manifest for --hash manifest")
	flags.IntVar(&f.hashLen, "hash-length", 0, "truncate sha256 hashes to this many hex digits")
	flags.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = one per CPU)")
	flags.StringVar(&f.diagTag, "diag-tag", "", "tag of the runtime missing-module message")
	flags.StringVar(&f.dialect, "dialect", "", "force the grammar (javascript, typescript, tsx)")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the output cache")
}

// apply copies the flags that were set on cmd into cfg.
func (f *compileFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("strategy") {
		cfg.Strategy = f.strategy
	}

	if changed("exclude") {
		cfg.Exclude = f.exclude
	}

	if changed("hash") {
		cfg.Hash.Mode = f.hashMode
	}

	if changed("manifest") {
		cfg.Hash.Manifest = f.manifest
	}

	if changed("hash-length") {
		cfg.Hash.Length = f.hashLen
	}

	if changed("workers") {
		cfg.Workers = f.workers
	}

	if changed("diag-tag") {
		cfg.DiagnosticTag = f.diagTag
	}

	if f.noCache {
		cfg.Cache.Enabled = false
	}
}

// cacheFile is the snapshot name inside cache.dir.
const cacheFile = "outputs.gob"

// session is the configured runtime of one command invocation.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers observability.Providers

	cache     *cache.LRU // Nil when caching is disabled.
	cachePath string     // Empty when the cache is not persisted.
}

// openSession loads the configuration, applies flag overrides and starts
// telemetry. The caller must close the session.
func (o *rootOptions) openSession(cmd *cobra.Command, flags *compileFlags) (*session, error) {
	cfg, err := config.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, err
	}

	if flags != nil {
		flags.apply(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	obsCfg, err := cfg.ObservabilityConfig(version.Version)
	if err != nil {
		return nil, err
	}

	switch {
	case o.quiet:
		obsCfg.LogLevel = slog.LevelError
	case o.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(cmd.Context(), obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{
		cfg:       cfg,
		logger:    providers.Logger,
		providers: providers,
	}

	if err := sess.openCache(cmd.Context()); err != nil {
		_ = providers.Shutdown(cmd.Context())

		return nil, err
	}

	return sess, nil
}

// openCache creates the output cache and restores its snapshot. A missing or
// unreadable snapshot only costs recompilation.
func (s *session) openCache(ctx context.Context) error {
	if !s.cfg.Cache.Enabled {
		return nil
	}

	maxBytes, err := s.cfg.CacheMaxBytes()
	if err != nil {
		return err
	}

	s.cache = cache.New(maxBytes)

	if s.cfg.Cache.Dir == "" {
		return nil
	}

	s.cachePath = filepath.Join(s.cfg.Cache.Dir, cacheFile)

	err = s.cache.Load(s.cachePath)

	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "cache snapshot loaded",
			"path", s.cachePath, "entries", s.cache.Stats().Entries)
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.logger.WarnContext(ctx, "ignoring cache snapshot", "path", s.cachePath, "error", err)
	}

	return nil
}

func (s *session) close(ctx context.Context) {
	if s.cachePath != "" {
		if err := s.saveCache(); err != nil {
			s.logger.WarnContext(ctx, "cache snapshot not saved", "path", s.cachePath, "error", err)
		}
	}

	if err := s.providers.Shutdown(ctx); err != nil {
		s.logger.WarnContext(ctx, "telemetry shutdown failed", "error", err)
	}
}

func (s *session) saveCache() error {
	const dirPerm = 0o750

	if err := os.MkdirAll(filepath.Dir(s.cachePath), dirPerm); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	return s.cache.Save(s.cachePath)
}

// compiler builds a compiler for the session configuration. strategy, when
// non-empty, overrides the configured export strategy.
func (s *session) compiler(flags *compileFlags, strategy rewrite.Strategy) (*compiler.Compiler, error) {
	rc, err := s.cfg.RewriteConfig()
	if err != nil {
		return nil, err
	}

	if strategy != "" {
		rc.Strategy = strategy
	}

	hashID, err := s.hashID()
	if err != nil {
		return nil, err
	}

	opts := []compiler.Option{
		compiler.WithConfig(rc),
		compiler.WithModuleHash(hashID, rc.ModuleHash),
		compiler.WithTracer(s.providers.Tracer),
		compiler.WithMetrics(s.providers.Metrics),
		compiler.WithLogger(s.logger),
	}

	if flags != nil && flags.dialect != "" {
		dialect, dialectErr := esm.ParseDialect(flags.dialect)
		if dialectErr != nil {
			return nil, dialectErr
		}

		opts = append(opts, compiler.WithDialect(dialect))
	}

	if s.cache != nil {
		opts = append(opts, compiler.WithCache(s.cache))
	}

	return compiler.New(opts...)
}

// hashID identifies the configured module hash in cache keys. Manifest mode
// covers the manifest contents, which may change between runs.
func (s *session) hashID() (string, error) {
	id := fmt.Sprintf("%s:%d", s.cfg.Hash.Mode, s.cfg.Hash.Length)

	if s.cfg.Hash.Manifest == "" {
		return id, nil
	}

	data, err := os.ReadFile(s.cfg.Hash.Manifest)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}

	return id + ":" + cache.NewKey(data).String(), nil
}

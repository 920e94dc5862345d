package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned for an export strategy name that is not recognized.
var ErrUnknownStrategy = errors.New("unknown export strategy")

// Strategy selects how exports are bound and how the wrapper marks the
// exports object.
type Strategy string

const (
	// StrategyStatic copies export values onto the exports object and
	// normalizes dependencies through the interop helper.
	StrategyStatic Strategy = "static"
	// StrategyLive registers getter thunks through the resolver so that
	// later reassignments are observed by importers.
	StrategyLive Strategy = "live"
)

// Defaults.
const (
	// DefaultExclude is the conventional source path of type-only imports.
	DefaultExclude = "types"
	// DefaultDiagnosticTag prefixes the missing-module diagnostic.
	DefaultDiagnosticTag = "Devtools"
)

// Factory parameter names of the loader convention.
const (
	ModuleParam  = "m"
	ExportsParam = "e"
	RequireParam = "r"
)

// HashFunc maps an import source path to the hash the loader resolves.
type HashFunc func(path string) string

// IdentityHash returns path unchanged.
func IdentityHash(path string) string { return path }

// Config is supplied by the caller for one compilation and not modified by it.
type Config struct {
	// Exclude lists source paths whose imports are dropped entirely. A nil
	// slice means the default set; an empty non-nil slice excludes nothing.
	Exclude []string
	// ModuleHash computes the resolver hash. Nil means IdentityHash.
	ModuleHash HashFunc
	// Strategy selects the export binding strategy. Empty means StrategyStatic.
	Strategy Strategy
	// DiagnosticTag prefixes the runtime missing-module message.
	DiagnosticTag string
}

// DefaultConfig returns the configuration used when the caller supplies none.
func DefaultConfig() Config {
	return Config{
		Exclude:       []string{DefaultExclude},
		ModuleHash:    IdentityHash,
		Strategy:      StrategyStatic,
		DiagnosticTag: DefaultDiagnosticTag,
	}
}

// ParseStrategy converts a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case StrategyStatic, StrategyLive:
		return s, nil
	case "":
		return StrategyStatic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Validate reports configuration errors.
func (cfg Config) Validate() error {
	_, err := ParseStrategy(string(cfg.Strategy))

	return err
}

func (cfg Config) withDefaults() Config {
	if cfg.Exclude == nil {
		cfg.Exclude = []string{DefaultExclude}
	}

	if cfg.ModuleHash == nil {
		cfg.ModuleHash = IdentityHash
	}

	if cfg.Strategy == "" {
		cfg.Strategy = StrategyStatic
	}

	if cfg.DiagnosticTag == "" {
		cfg.DiagnosticTag = DefaultDiagnosticTag
	}

	return cfg
}

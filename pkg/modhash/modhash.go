// Package modhash provides the moduleHash functions that map an import source
// path to the key a loader resolves it by.
package modhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

// Sentinel errors.
var (
	ErrUnknownMode     = errors.New("unknown hash mode")
	ErrInvalidLength   = errors.New("invalid hash length")
	ErrMissingManifest = errors.New("manifest mode requires a manifest file")
)

// Mode selects a hash function.
type Mode string

// Hash modes.
const (
	ModeIdentity Mode = "identity"
	ModeSHA256   Mode = "sha256"
	ModeManifest Mode = "manifest"
)

// sha256HexLen is the length of a full hex-encoded SHA-256 digest.
const sha256HexLen = sha256.Size * 2

// ParseMode converts a mode name. An empty name is ModeIdentity.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case ModeIdentity, ModeSHA256, ModeManifest:
		return m, nil
	case "":
		return ModeIdentity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Options configures New.
type Options struct {
	Mode Mode
	// Length truncates sha256 digests. Zero keeps the full digest.
	Length int
	// Manifest is the manifest file used by ModeManifest.
	Manifest string
}

// New builds the hash function described by opts.
func New(opts Options) (rewrite.HashFunc, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeSHA256:
		return SHA256(opts.Length)
	case ModeManifest:
		if opts.Manifest == "" {
			return nil, ErrMissingManifest
		}

		m, loadErr := LoadManifest(opts.Manifest)
		if loadErr != nil {
			return nil, loadErr
		}

		return m.Hash, nil
	default:
		return Identity, nil
	}
}

// Identity returns path unchanged.
func Identity(path string) string { return path }

// SHA256 returns a function hashing paths to hex SHA-256 digests truncated to
// length characters.
func SHA256(length int) (rewrite.HashFunc, error) {
	if length < 0 || length > sha256HexLen {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidLength, length, sha256HexLen)
	}

	if length == 0 {
		length = sha256HexLen
	}

	return func(path string) string {
		sum := sha256.Sum256([]byte(path))

		return hex.EncodeToString(sum[:])[:length]
	}, nil
}

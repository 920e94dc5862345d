package modhash

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ManifestVersion is the only manifest version understood.
const ManifestVersion = 1

// ErrInvalidManifest is returned when a manifest fails schema validation.
var ErrInvalidManifest = errors.New("invalid manifest")

//go:embed manifest.schema.json
var manifestSchema []byte

// Manifest maps source paths to precomputed hashes. Paths it does not list
// fall back to another mode.
type Manifest struct {
	Version  int               `json:"version" yaml:"version"`
	Fallback Mode              `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Modules  map[string]string `json:"modules" yaml:"modules"`

	fallback func(string) string
}

// SchemaError is one violation reported by ValidateManifest.
type SchemaError struct {
	Field       string
	Description string
}

func (e SchemaError) String() string {
	return e.Field + ": " + e.Description
}

// Schema returns the JSON schema manifests are validated against.
func Schema() []byte {
	return manifestSchema
}

// ValidateManifest checks YAML or JSON manifest data against the schema. The
// returned error is non-nil only when the data cannot be decoded at all.
func ValidateManifest(data []byte) ([]SchemaError, error) {
	var doc any

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(manifestSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	violations := make([]SchemaError, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, SchemaError{Field: verr.Field(), Description: verr.Description()})
	}

	return violations, nil
}

// ParseManifest decodes and validates manifest data.
func ParseManifest(data []byte) (*Manifest, error) {
	violations, err := ValidateManifest(data)
	if err != nil {
		return nil, err
	}

	if len(violations) > 0 {
		msgs := make([]string, 0, len(violations))
		for _, v := range violations {
			msgs = append(msgs, v.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}

	var m Manifest

	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m.fallback = Identity

	if m.Fallback == ModeSHA256 {
		hash, hashErr := SHA256(0)
		if hashErr != nil {
			return nil, hashErr
		}

		m.fallback = hash
	}

	return &m, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Hash returns the manifest entry for path, or the fallback hash.
func (m *Manifest) Hash(path string) string {
	if h, ok := m.Modules[path]; ok {
		return h
	}

	if m.fallback == nil {
		return Identity(path)
	}

	return m.fallback(path)
}

package compiler

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/Sumatoshi-tech/modwrap/pkg/esm"
	"github.com/Sumatoshi-tech/modwrap/pkg/rewrite"
)

// Output is one compiled module.
type Output struct {
	Name        string                 `json:"name" yaml:"name"`
	Dialect     esm.Dialect            `json:"dialect" yaml:"dialect"`
	Code        string                 `json:"code" yaml:"code"`
	Imports     []rewrite.ImportRecord `json:"imports" yaml:"imports"`
	Exports     []string               `json:"exports" yaml:"exports"`
	Excluded    []string               `json:"excluded" yaml:"excluded"`
	Diagnostics []rewrite.Diagnostic   `json:"diagnostics" yaml:"diagnostics"`
	// Cached is set when the output was served from the compiler cache.
	Cached bool `json:"cached" yaml:"cached"`
}

// Warnings counts the warning diagnostics.
func (o *Output) Warnings() int {
	n := 0

	for _, d := range o.Diagnostics {
		if d.Severity == rewrite.SeverityWarning {
			n++
		}
	}

	return n
}

func newOutput(name string, dialect esm.Dialect, code string, res *rewrite.Result) *Output {
	return &Output{
		Name:        name,
		Dialect:     dialect,
		Code:        code,
		Imports:     res.Imports,
		Exports:     res.Exports,
		Excluded:    res.Excluded,
		Diagnostics: res.Diagnostics,
	}
}

// cacheEntry is the gob form of an Output. The name is not part of it: two
// files with the same source share an entry.
type cacheEntry struct {
	Dialect     esm.Dialect
	Code        string
	Imports     []rewrite.ImportRecord
	Exports     []string
	Excluded    []string
	Diagnostics []rewrite.Diagnostic
}

func encodeOutput(out *Output) ([]byte, error) {
	var buf bytes.Buffer

	err := gob.NewEncoder(&buf).Encode(cacheEntry{
		Dialect:     out.Dialect,
		Code:        out.Code,
		Imports:     out.Imports,
		Exports:     out.Exports,
		Excluded:    out.Excluded,
		Diagnostics: out.Diagnostics,
	})
	if err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	return buf.Bytes(), nil
}

func decodeOutput(name string, payload []byte) (*Output, error) {
	var entry cacheEntry

	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}

	return &Output{
		Name:        name,
		Dialect:     entry.Dialect,
		Code:        entry.Code,
		Imports:     entry.Imports,
		Exports:     entry.Exports,
		Excluded:    entry.Excluded,
		Diagnostics: entry.Diagnostics,
		Cached:      true,
	}, nil
}

package rewrite

import "strconv"

// namespacePrefix prefixes generated namespace identifiers.
const namespacePrefix = "_i"

// ImportRecord describes one hoisted dependency of a compilation.
type ImportRecord struct {
	// Namespace is the generated identifier holding the dependency's exports.
	Namespace string `json:"namespace" yaml:"namespace"`
	// Hash is passed to the resolver.
	Hash string `json:"hash" yaml:"hash"`
	// Path is the source path as written in the module.
	Path string `json:"path" yaml:"path"`
}

// ImportCache is the ordered table of dependencies for one compilation.
// Records are deduplicated by source path; namespaces are allocated from the
// table length, so they are _i0, _i1, ... in first-use order.
type ImportCache struct {
	records []ImportRecord
	byPath  map[string]int
}

// Reset empties the cache for a new compilation.
func (c *ImportCache) Reset() {
	c.records = nil
	c.byPath = make(map[string]int)
}

// Resolve returns the record for path, allocating one with hash on first use.
func (c *ImportCache) Resolve(path, hash string) ImportRecord {
	if c.byPath == nil {
		c.byPath = make(map[string]int)
	}

	if idx, ok := c.byPath[path]; ok {
		return c.records[idx]
	}

	rec := ImportRecord{
		Namespace: namespacePrefix + strconv.Itoa(len(c.records)),
		Hash:      hash,
		Path:      path,
	}

	c.byPath[path] = len(c.records)
	c.records = append(c.records, rec)

	return rec
}

// Len returns the number of records.
func (c *ImportCache) Len() int { return len(c.records) }

// Records returns a copy of the records in allocation order.
func (c *ImportCache) Records() []ImportRecord {
	out := make([]ImportRecord, len(c.records))
	copy(out, c.records)

	return out
}

package rewrite

import "github.com/Sumatoshi-tech/modwrap/pkg/esm"

// excludeSet is the lookup form of Config.Exclude.
type excludeSet map[string]struct{}

func newExcludeSet(paths []string) excludeSet {
	set := make(excludeSet, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}

	return set
}

func (s excludeSet) has(path string) bool {
	_, ok := s[path]

	return ok
}

// FilterExcluded returns stmts without the imports and re-exports whose
// source path is in exclude. The input slice is not modified. Filtering an
// already filtered list returns an equal list.
func FilterExcluded(stmts []esm.Statement, exclude []string) []esm.Statement {
	set := newExcludeSet(exclude)
	out := make([]esm.Statement, 0, len(stmts))

	for _, stmt := range stmts {
		if path, ok := sourcePath(stmt); ok && set.has(path) {
			continue
		}

		out = append(out, stmt)
	}

	return out
}

// sourcePath returns the module source a statement depends on.
func sourcePath(stmt esm.Statement) (string, bool) {
	switch st := stmt.(type) {
	case *esm.Import:
		return st.Source, true
	case *esm.ExportList:
		return st.Source, st.Source != ""
	case *esm.ExportAll:
		return st.Source, true
	default:
		return "", false
	}
}

// Excluded reports whether imports of path are dropped by this context.
func (c *Context) Excluded(path string) bool {
	return c.exclude.has(path)
}

package esm

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// ErrUnsupportedDialect is returned when a file is not JavaScript or TypeScript.
var ErrUnsupportedDialect = errors.New("unsupported module dialect")

var extensionDialects = map[string]Dialect{
	".js":  DialectJavaScript,
	".mjs": DialectJavaScript,
	".cjs": DialectJavaScript,
	".jsx": DialectJavaScript,
	".ts":  DialectTypeScript,
	".mts": DialectTypeScript,
	".cts": DialectTypeScript,
	".tsx": DialectTSX,
}

var linguistDialects = map[string]Dialect{
	"JavaScript": DialectJavaScript,
	"TypeScript": DialectTypeScript,
	"TSX":        DialectTSX,
}

// DetectDialect picks the grammar for filename. The extension decides when it
// is known; otherwise linguist detection on the content is used.
func DetectDialect(filename string, content []byte) (Dialect, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if d, ok := extensionDialects[ext]; ok {
		return d, nil
	}

	lang := enry.GetLanguage(filepath.Base(filename), content)
	if d, ok := linguistDialects[lang]; ok {
		return d, nil
	}

	if lang == "" {
		lang = "unknown"
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedDialect, filename, lang)
}

// ParseDialect validates a dialect name given on the command line.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case DialectJavaScript, DialectTypeScript, DialectTSX:
		return d, nil
	case "js":
		return DialectJavaScript, nil
	case "ts":
		return DialectTypeScript, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

package esm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
)

// Sentinel errors for parser operations.
var (
	errNoRootNode = errors.New("esm parser: no root node")
	errPoolType   = errors.New("esm parser: pool returned unexpected type")
)

var grammars = map[Dialect]func() unsafe.Pointer{
	DialectJavaScript: javascript.GetLanguage,
	DialectTypeScript: typescript.GetLanguage,
	DialectTSX:        tsx.GetLanguage,
}

// Parser turns module source into a Module. It is safe for concurrent use;
// tree-sitter parsers are pooled per dialect.
type Parser struct {
	once  sync.Once
	pools map[Dialect]*sync.Pool
}

// NewParser creates a Parser for all supported dialects.
func NewParser() *Parser {
	return &Parser{}
}

func (parser *Parser) init() {
	parser.pools = make(map[Dialect]*sync.Pool, len(grammars))

	for dialect, getLanguage := range grammars {
		lang := sitter.NewLanguage(getLanguage())
		parser.pools[dialect] = &sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		}
	}
}

// Parse detects the dialect of filename and parses content.
func (parser *Parser) Parse(ctx context.Context, filename string, content []byte) (*Module, error) {
	dialect, err := DetectDialect(filename, content)
	if err != nil {
		return nil, err
	}

	return parser.ParseDialect(ctx, filename, dialect, content)
}

// ParseDialect parses content with the grammar for dialect.
func (parser *Parser) ParseDialect(ctx context.Context, filename string, dialect Dialect, content []byte) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("esm parser: %s: %w", filename, err)
	}

	parser.once.Do(parser.init)

	pool, ok := parser.pools[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("esm parser: failed to parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	conv := converter{src: content}

	mod := &Module{Path: filename, Dialect: dialect}

	for idx := range root.NamedChildCount() {
		node := root.NamedChild(idx)
		if node.Type() == kindHashBang {
			mod.HashBang = conv.text(node)

			continue
		}

		stmt := conv.statement(node)
		if stmt != nil {
			mod.Body = append(mod.Body, stmt)
		}
	}

	return mod, nil
}

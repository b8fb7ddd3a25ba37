package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/agusespa/upgradescope/internal/phpast"
)

// ErrParse marks a file whose syntax tree contains errors.
var ErrParse = errors.New("syntax error")

// PHPParser wraps a tree-sitter parser configured for PHP. It is not safe for
// concurrent use.
type PHPParser struct {
	parser *sitter.Parser
}

func NewPHPParser() (*PHPParser, error) {
	lang := sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		parser.Close()
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &PHPParser{parser: parser}, nil
}

func (pp *PHPParser) Language() string {
	return "PHP"
}

func (pp *PHPParser) SupportedExtensions() []string {
	return []string{".php"}
}

// Supports reports whether filePath has a PHP extension.
func (pp *PHPParser) Supports(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, e := range pp.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

func (pp *PHPParser) Close() {
	if pp.parser != nil {
		pp.parser.Close()
	}
}

// File is one parsed source file. Close releases the syntax tree.
type File struct {
	Path         string
	Source       []byte
	Root         *sitter.Node
	Declarations []phpast.Declaration
	tree         *sitter.Tree
}

func (f *File) Close() {
	if f != nil && f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// Declaration returns the class-like declaration named fqcn.
func (f *File) Declaration(fqcn string) (phpast.Declaration, bool) {
	want := strings.TrimPrefix(fqcn, `\`)
	for _, d := range f.Declarations {
		if d.FQCN(f.Source) == want {
			return d, true
		}
	}
	return phpast.Declaration{}, false
}

// Parse builds the syntax tree for content. When the tree contains syntax
// errors the File is still returned together with an error wrapping ErrParse,
// so callers that tolerate partial trees can keep going.
func (pp *PHPParser) Parse(path string, content []byte) (*File, error) {
	tree := pp.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned nil tree for %s", ErrParse, path)
	}
	root := tree.RootNode()
	f := &File{
		Path:   path,
		Source: content,
		Root:   root,
		tree:   tree,
	}
	f.Declarations = phpast.Declarations(root, content)
	if root.HasError() {
		return f, fmt.Errorf("%w in %s near line %d", ErrParse, path, firstErrorLine(root))
	}
	return f, nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return phpast.Line(n)
	}
	for _, c := range phpast.Children(n) {
		if c.HasError() || c.IsError() || c.IsMissing() {
			return firstErrorLine(c)
		}
	}
	return phpast.Line(n)
}

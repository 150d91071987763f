//go:build cgo

package rubyparse

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"cxlint/internal/ast"
)

// Parser wraps a tree-sitter parser configured for Ruby.
// It is safe for concurrent use; parses are serialized.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a new Ruby parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Parser{parser: p}
}

// IsAvailable returns whether parsing is available.
func IsAvailable() bool {
	return true
}

// Parse parses source and converts it to a syntax tree. An empty program
// yields a nil node and no error.
func (p *Parser) Parse(ctx context.Context, source []byte) (*ast.Node, error) {
	p.mu.Lock()
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root)
	}

	c := newConverter(source)
	return c.program(root), nil
}

// firstError locates the earliest ERROR or missing node.
func firstError(n *sitter.Node) error {
	var found *sitter.Node
	var walk func(*sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if ch := n.Child(i); ch != nil && (ch.HasError() || ch.IsMissing()) {
				if walk(ch) {
					return true
				}
			}
		}
		return false
	}
	if !walk(n) || found == nil {
		found = n
	}
	p := found.StartPoint()
	return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column)}
}

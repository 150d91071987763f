//go:build !cgo

package rubyparse

import (
	"context"

	"cxlint/internal/ast"
)

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a new Ruby parser.
// Returns nil when CGO is disabled.
func NewParser() *Parser {
	return nil
}

// IsAvailable returns whether parsing is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// Parse parses Ruby source.
// Stub implementation returns an error.
func (p *Parser) Parse(ctx context.Context, source []byte) (*ast.Node, error) {
	return nil, ErrNoCGO
}

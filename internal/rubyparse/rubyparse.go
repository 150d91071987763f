// Package rubyparse turns Ruby source into the syntax trees scored by the
// complexity package. Parsing is backed by tree-sitter and needs CGO.
package rubyparse

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNoCGO is returned when parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("ruby parsing requires CGO (tree-sitter)")

// SyntaxError reports the first position tree-sitter could not parse.
type SyntaxError struct {
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d", e.Line, e.Column)
}

var rubyExtensions = map[string]bool{
	".rb":       true,
	".rake":     true,
	".gemspec":  true,
	".ru":       true,
	".jbuilder": true,
}

var rubyFilenames = map[string]bool{
	"Gemfile":   true,
	"Rakefile":  true,
	"Guardfile": true,
	"Capfile":   true,
}

// IsRubyFile reports whether path looks like Ruby source by name.
func IsRubyFile(path string) bool {
	base := filepath.Base(path)
	if rubyFilenames[base] {
		return true
	}
	return rubyExtensions[strings.ToLower(filepath.Ext(base))]
}

package check

import (
	"cxlint/internal/ast"
	"cxlint/internal/pattern"
)

// DefinitionKind tells how a method was defined.
type DefinitionKind int

const (
	// Regular is `def name`
	Regular DefinitionKind = iota
	// Singleton is `def self.name` or `def obj.name`
	Singleton
	// Dynamic is `define_method(:name) { ... }`
	Dynamic
)

func (k DefinitionKind) String() string {
	switch k {
	case Regular:
		return "def"
	case Singleton:
		return "defs"
	case Dynamic:
		return "define_method"
	default:
		return "unknown"
	}
}

// Candidate is a method definition found in a tree.
type Candidate struct {
	Name string
	Kind DefinitionKind

	// Node is the def, defs or block node
	Node *ast.Node

	// Body is nil for empty methods
	Body *ast.Node
}

// Discover returns every scorable definition under root in pre-order:
// def and defs nodes, and blocks recognized as dynamic method definitions.
func Discover(root *ast.Node) []Candidate {
	var out []Candidate
	root.EachNode(func(n *ast.Node) bool {
		if c, ok := candidateFor(n); ok {
			out = append(out, c)
		}
		return true
	}, ast.KindDef, ast.KindDefs, ast.KindBlock)
	return out
}

func candidateFor(n *ast.Node) (Candidate, bool) {
	switch n.Kind {
	case ast.KindDef, ast.KindDefs:
		name, ok := n.MethodName()
		if !ok {
			return Candidate{}, false
		}
		kind := Regular
		if n.Kind == ast.KindDefs {
			kind = Singleton
		}
		return Candidate{Name: string(name), Kind: kind, Node: n, Body: n.Body()}, true

	case ast.KindBlock:
		captures, ok := pattern.Match(pattern.DefineMethod, n)
		if !ok || len(captures) == 0 {
			return Candidate{}, false
		}
		var name string
		switch v := captures[0].(type) {
		case ast.Symbol:
			name = string(v)
		case string:
			name = v
		default:
			return Candidate{}, false
		}
		return Candidate{Name: name, Kind: Dynamic, Node: n, Body: n.Body()}, true
	}
	return Candidate{}, false
}

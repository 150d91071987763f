// Package pattern matches structural patterns against syntax trees.
//
// A Pattern is plain data: a kind match with ordered child patterns, wildcards,
// alternatives, literal values and captures. Match interprets it recursively and
// never touches the tree it inspects.
package pattern

import (
	"strconv"
	"strings"

	"cxlint/internal/ast"
)

// Pattern is a compiled structural pattern.
type Pattern interface {
	match(v any, st *state) bool
	String() string
}

type state struct {
	captures []any
}

func (st *state) mark() int { return len(st.captures) }

func (st *state) reset(m int) { st.captures = st.captures[:m] }

// Match tests v against p. On success it returns the captured values in
// left-to-right order. A failed match is not an error.
func Match(p Pattern, v any) ([]any, bool) {
	if p == nil {
		return nil, false
	}
	if n, ok := v.(*ast.Node); ok && n == nil {
		v = nil
	}
	st := &state{}
	if !p.match(v, st) {
		return nil, false
	}
	return st.captures, true
}

// Matches is Match without captures.
func Matches(p Pattern, v any) bool {
	_, ok := Match(p, v)
	return ok
}

// nodePattern matches a node of one of kinds. When children is nil the
// children are not inspected.
type nodePattern struct {
	kinds    []ast.Kind
	children []Pattern
}

// Node matches a node of the given kind whose children match children exactly,
// in order. Use Rest to absorb a variable number of children.
func Node(kind ast.Kind, children ...Pattern) Pattern {
	if children == nil {
		children = []Pattern{}
	}
	return nodePattern{kinds: []ast.Kind{kind}, children: children}
}

// NodeOf is Node with a set of acceptable kinds.
func NodeOf(kinds []ast.Kind, children ...Pattern) Pattern {
	if children == nil {
		children = []Pattern{}
	}
	return nodePattern{kinds: kinds, children: children}
}

// Kind matches any node of one of the given kinds regardless of its children.
func Kind(kinds ...ast.Kind) Pattern {
	return nodePattern{kinds: kinds}
}

func (p nodePattern) match(v any, st *state) bool {
	n, ok := v.(*ast.Node)
	if !ok || n == nil || !n.Is(p.kinds...) {
		return false
	}
	if p.children == nil {
		return true
	}
	return matchSeq(p.children, n.Children, st)
}

func (p nodePattern) String() string {
	head := kindsString(p.kinds)
	if p.children == nil {
		return head
	}
	parts := make([]string, 0, len(p.children)+1)
	parts = append(parts, head)
	for _, c := range p.children {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func kindsString(kinds []ast.Kind) string {
	if len(kinds) == 1 {
		return kinds[0].String()
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "{" + strings.Join(names, " ") + "}"
}

// matchSeq matches an ordered list of child patterns against values,
// backtracking over Rest.
func matchSeq(ps []Pattern, vs []any, st *state) bool {
	if len(ps) == 0 {
		return len(vs) == 0
	}

	switch head := ps[0].(type) {
	case restPattern:
		for k := 0; k <= len(vs); k++ {
			m := st.mark()
			if matchSeq(ps[1:], vs[k:], st) {
				return true
			}
			st.reset(m)
		}
		return false
	case capturePattern:
		if _, ok := head.inner.(restPattern); ok {
			for k := 0; k <= len(vs); k++ {
				m := st.mark()
				seq := append([]any(nil), vs[:k]...)
				st.captures = append(st.captures, seq)
				if matchSeq(ps[1:], vs[k:], st) {
					return true
				}
				st.reset(m)
			}
			return false
		}
	}

	if len(vs) == 0 {
		return false
	}
	m := st.mark()
	if ps[0].match(normalize(vs[0]), st) && matchSeq(ps[1:], vs[1:], st) {
		return true
	}
	st.reset(m)
	return false
}

// normalize turns typed nil nodes into untyped nil so Nil() sees them.
func normalize(v any) any {
	if n, ok := v.(*ast.Node); ok && n == nil {
		return nil
	}
	return v
}

type anyPattern struct{}

// Any matches any single value, including nil.
func Any() Pattern { return anyPattern{} }

func (anyPattern) match(any, *state) bool { return true }
func (anyPattern) String() string         { return "_" }

type restPattern struct{}

// Rest matches any sequence of children, including none. Outside a child list
// it behaves like Any.
func Rest() Pattern { return restPattern{} }

func (restPattern) match(any, *state) bool { return true }
func (restPattern) String() string         { return "..." }

type capturePattern struct {
	inner Pattern
}

// Capture records the value matched by p.
func Capture(p Pattern) Pattern { return capturePattern{inner: p} }

func (p capturePattern) match(v any, st *state) bool {
	m := st.mark()
	// Reserve the slot first so captures stay in left-to-right order when the
	// inner pattern captures too.
	st.captures = append(st.captures, v)
	if !p.inner.match(v, st) {
		st.reset(m)
		return false
	}
	return true
}

func (p capturePattern) String() string { return "$" + p.inner.String() }

type altPattern struct {
	options []Pattern
}

// Alt matches when any option matches; the first matching option wins.
func Alt(options ...Pattern) Pattern { return altPattern{options: options} }

func (p altPattern) match(v any, st *state) bool {
	for _, o := range p.options {
		m := st.mark()
		if o.match(v, st) {
			return true
		}
		st.reset(m)
	}
	return false
}

func (p altPattern) String() string {
	parts := make([]string, len(p.options))
	for i, o := range p.options {
		parts[i] = o.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

type literalPattern struct {
	value any
}

// Sym matches the symbol value name.
func Sym(name string) Pattern { return literalPattern{value: ast.Symbol(name)} }

// Str matches the string value s.
func Str(s string) Pattern { return literalPattern{value: s} }

// Int matches the integer value i.
func Int(i int64) Pattern { return literalPattern{value: i} }

func (p literalPattern) match(v any, _ *state) bool {
	return v == p.value
}

func (p literalPattern) String() string {
	switch x := p.value.(type) {
	case ast.Symbol:
		return ":" + string(x)
	case string:
		return strconv.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return "?"
}

type nilPattern struct{}

// Nil matches an absent child.
func Nil() Pattern { return nilPattern{} }

func (nilPattern) match(v any, _ *state) bool { return v == nil }
func (nilPattern) String() string             { return "nil?" }

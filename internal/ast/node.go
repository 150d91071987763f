// Package ast provides the read-only syntax tree scored by the complexity engine.
//
// Trees follow the parser gem layout: every node has a kind and an ordered list of
// children that may be nested nodes, symbols, literal values, or nil for an absent
// slot (a receiverless send, an empty method body).
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a Ruby symbol child, such as a method or variable name.
type Symbol string

// Loc is the source span of a node. Lines are 1-based, columns 0-based.
type Loc struct {
	Line      int `json:"line"`
	Column    int `json:"column"`
	EndLine   int `json:"endLine"`
	EndColumn int `json:"endColumn"`
}

// Node is an immutable syntax tree node.
type Node struct {
	Kind     Kind
	Children []any
	Loc      Loc

	// Keyword is the source keyword for nodes whose kind is shared by several
	// spellings: "if", "unless", "elsif", "?" or "modifier" for KindIf.
	Keyword string

	// ElseKeyword is set on if nodes written with an else or elsif keyword,
	// even when that branch is empty.
	ElseKeyword bool
}

// New creates a node with the given children.
func New(kind Kind, children ...any) *Node {
	return &Node{Kind: kind, Children: children}
}

// At returns a copy of n positioned at loc. Used by tree builders.
func (n *Node) At(loc Loc) *Node {
	c := *n
	c.Loc = loc
	return &c
}

// WithKeyword returns a copy of n carrying the source keyword.
func (n *Node) WithKeyword(kw string) *Node {
	c := *n
	c.Keyword = kw
	return &c
}

// WithElse returns a copy of n marked as written with an else keyword.
func (n *Node) WithElse() *Node {
	c := *n
	c.ElseKeyword = true
	return &c
}

// Is reports whether n is non-nil and has one of the given kinds.
func (n *Node) Is(kinds ...Kind) bool {
	if n == nil {
		return false
	}
	for _, k := range kinds {
		if n.Kind == k {
			return true
		}
	}
	return false
}

// Child returns the i-th child if it is a node, nil otherwise.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	c, _ := n.Children[i].(*Node)
	return c
}

// SymbolAt returns the i-th child if it is a symbol.
func (n *Node) SymbolAt(i int) (Symbol, bool) {
	if n == nil || i < 0 || i >= len(n.Children) {
		return "", false
	}
	s, ok := n.Children[i].(Symbol)
	return s, ok
}

// NodeChildren returns the children that are nodes, skipping values and nils.
func (n *Node) NodeChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if cn, ok := c.(*Node); ok && cn != nil {
			out = append(out, cn)
		}
	}
	return out
}

// EachNode walks n and its descendants in pre-order, depth-first, calling fn for
// every node whose kind is in kinds (every node when kinds is empty). The walk
// stops early when fn returns false.
func (n *Node) EachNode(fn func(*Node) bool, kinds ...Kind) {
	if n == nil {
		return
	}
	var set KindSet
	all := len(kinds) == 0
	for _, k := range kinds {
		set.Add(k)
	}
	n.walk(func(c *Node) bool {
		if all || set.Has(c.Kind) {
			return fn(c)
		}
		return true
	})
}

// EachNodeIn is EachNode with a prebuilt set.
func (n *Node) EachNodeIn(set KindSet, fn func(*Node) bool) {
	if n == nil {
		return
	}
	n.walk(func(c *Node) bool {
		if set.Has(c.Kind) {
			return fn(c)
		}
		return true
	})
}

func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if cn, ok := c.(*Node); ok && cn != nil {
			if !cn.walk(fn) {
				return false
			}
		}
	}
	return true
}

// MethodName returns the method name of a def, defs, send, csend or block node.
func (n *Node) MethodName() (Symbol, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case KindDef:
		return n.SymbolAt(0)
	case KindDefs, KindSend, KindCsend:
		return n.SymbolAt(1)
	case KindBlock, KindNumblock:
		return n.Child(0).MethodName()
	}
	return "", false
}

// Body returns the body of a definition or block, nil when it is empty.
func (n *Node) Body() *Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindDef:
		return n.Child(2)
	case KindDefs:
		return n.Child(3)
	case KindBlock, KindNumblock:
		return n.Child(2)
	}
	return nil
}

// Receiver returns the receiver of a send, csend or defs node.
func (n *Node) Receiver() *Node {
	if n.Is(KindSend, KindCsend, KindDefs) {
		return n.Child(0)
	}
	return nil
}

// Arguments returns the argument children of a send or csend node.
func (n *Node) Arguments() []any {
	if !n.Is(KindSend, KindCsend) || len(n.Children) < 2 {
		return nil
	}
	return n.Children[2:]
}

// HasElse reports whether an if node carries an else clause of its own, written
// either as else or as an elsif chain, empty or not. Ternaries and modifiers
// never do.
func (n *Node) HasElse() bool {
	if !n.Is(KindIf) || n.Keyword == "?" || n.Keyword == "modifier" {
		return false
	}
	if n.ElseKeyword {
		return true
	}
	if n.Keyword == "unless" {
		// unless stores its branches swapped
		return n.Child(1) != nil
	}
	return n.Child(2) != nil
}

// String renders n as an s-expression, e.g. (send nil :puts (str "hi")).
func (n *Node) String() string {
	var b strings.Builder
	writeValue(&b, n)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("nil")
	case *Node:
		if x == nil {
			b.WriteString("nil")
			return
		}
		b.WriteByte('(')
		b.WriteString(x.Kind.String())
		for _, c := range x.Children {
			b.WriteByte(' ')
			writeValue(b, c)
		}
		b.WriteByte(')')
	case Symbol:
		b.WriteByte(':')
		b.WriteString(string(x))
	case string:
		b.WriteString(strconv.Quote(x))
	default:
		fmt.Fprint(b, x)
	}
}

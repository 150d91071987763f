package complexity

import (
	"cxlint/internal/ast"
)

// Scorer computes the complexity of method bodies for one variant.
// A Scorer is immutable and may be shared between goroutines; every call to
// Score gets its own discount state.
type Scorer struct {
	variant Variant
	counted ast.KindSet
}

// NewScorer creates a scorer for the given variant.
func NewScorer(v Variant) *Scorer {
	s := &Scorer{variant: v}
	for _, k := range v.Counted() {
		s.counted.Add(k)
	}
	return s
}

// Variant returns the variant this scorer was built with.
func (s *Scorer) Variant() Variant {
	return s.variant
}

// Score walks body in pre-order and returns Baseline plus the weight of every
// counted node. Only counted kinds are visited: a reassigned local starts a
// new safe-navigation chain only for variants that count lvasgn. Callers skip empty bodies; a nil body scores Baseline.
func (s *Scorer) Score(body *ast.Node) Result {
	res := Result{Score: Baseline}
	if body == nil {
		return res
	}
	d := newDiscount()
	s.walk(body, nil, d, &res)
	return res
}

func (s *Scorer) walk(n, parent *ast.Node, d *discount, res *Result) {
	if s.counted.Has(n.Kind) {
		s.visit(n, parent, d, res)
	}
	for _, c := range n.Children {
		if cn, ok := c.(*ast.Node); ok && cn != nil {
			s.walk(cn, n, d, res)
		}
	}
}

func (s *Scorer) visit(n, parent *ast.Node, d *discount, res *Result) {
	if n.Kind == ast.KindLvasgn {
		if name, ok := n.SymbolAt(0); ok {
			d.assign(name)
		}
	}
	if n.Kind == ast.KindCsend && d.repeated(n) {
		return
	}

	w := s.variant.Weigh(n, parent)
	if w <= 0 {
		return
	}
	res.Score += w
	res.Vector.add(n.Kind, w)
}

// discount is the per-traversal state that keeps repeated safe-navigation on
// the same local from being counted more than once.
type discount struct {
	chains map[ast.Symbol]*ast.Node
}

func newDiscount() *discount {
	return &discount{chains: make(map[ast.Symbol]*ast.Node)}
}

// assign records a local assignment. Chains rooted at that local are forgotten
// because the value behind them may have changed.
func (d *discount) assign(name ast.Symbol) {
	delete(d.chains, name)
}

// repeated reports whether csend continues a chain already counted in this
// traversal. Only chains whose receiver is a plain local are tracked.
func (d *discount) repeated(csend *ast.Node) bool {
	name, ok := chainRoot(csend)
	if !ok {
		return false
	}
	first, seen := d.chains[name]
	if !seen {
		d.chains[name] = csend
		return false
	}
	return first != csend
}

func chainRoot(csend *ast.Node) (ast.Symbol, bool) {
	recv := csend.Receiver()
	if !recv.Is(ast.KindLvar) {
		return "", false
	}
	return recv.SymbolAt(0)
}

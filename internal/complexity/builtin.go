package complexity

import (
	"math"

	"cxlint/internal/ast"
)

func init() {
	Register(Cyclomatic)
	Register(Perceived)
}

var (
	// Cyclomatic counts decision points: one per branch, loop, rescue,
	// short-circuit operator and iterating block.
	Cyclomatic Variant = cyclomatic{}

	// Perceived weighs constructs by how hard they are to read: an if with an
	// else costs two, a case with a subject costs less than its branch count.
	Perceived Variant = perceived{}
)

var cyclomaticKinds = []ast.Kind{
	ast.KindIf, ast.KindWhile, ast.KindUntil, ast.KindFor,
	ast.KindCsend, ast.KindBlock, ast.KindNumblock, ast.KindBlockPass,
	ast.KindRescue, ast.KindWhen, ast.KindInPattern,
	ast.KindAnd, ast.KindOr, ast.KindOrAsgn, ast.KindAndAsgn,
}

type cyclomatic struct{}

func (cyclomatic) Name() string { return "cyclomatic" }

func (cyclomatic) Counted() []ast.Kind { return cyclomaticKinds }

func (cyclomatic) Weigh(n, parent *ast.Node) float64 {
	switch n.Kind {
	case ast.KindBlock, ast.KindNumblock:
		// Only blocks handed to iterating methods add a path.
		if !IsIteratingSend(n.Child(0)) {
			return 0
		}
	case ast.KindBlockPass:
		if !IsIteratingSend(parent) {
			return 0
		}
	}
	return 1
}

var perceivedKinds = func() []ast.Kind {
	kinds := make([]ast.Kind, 0, len(cyclomaticKinds))
	for _, k := range cyclomaticKinds {
		if k != ast.KindWhen {
			kinds = append(kinds, k)
		}
	}
	return append(kinds, ast.KindCase)
}()

type perceived struct{}

func (perceived) Name() string { return "perceived" }

func (perceived) Counted() []ast.Kind { return perceivedKinds }

func (perceived) Weigh(n, parent *ast.Node) float64 {
	switch n.Kind {
	case ast.KindCase:
		// (case subject when... else)
		branches := 0
		for i := 1; i < len(n.Children); i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			if c.Kind == ast.KindWhen || i == len(n.Children)-1 {
				branches++
			}
		}
		if n.Child(0) == nil {
			// A subjectless case is an if/elsif chain in disguise.
			return float64(branches)
		}
		return math.Round(0.8 + 0.2*float64(branches))
	case ast.KindIf:
		if n.HasElse() && n.Keyword != "elsif" {
			return 2
		}
		return 1
	}
	return Cyclomatic.Weigh(n, parent)
}

// iteratingMethods are the methods whose block runs once per element.
var iteratingMethods = map[ast.Symbol]bool{}

func init() {
	for _, m := range []string{
		// Enumerable
		"all?", "any?", "chain", "chunk", "chunk_while", "collect", "collect_concat",
		"count", "cycle", "detect", "drop", "drop_while", "each", "each_cons",
		"each_entry", "each_slice", "each_with_index", "each_with_object", "entries",
		"filter", "filter_map", "find", "find_all", "find_index", "first", "flat_map",
		"grep", "grep_v", "group_by", "inject", "lazy", "map", "max", "max_by", "min",
		"min_by", "minmax", "minmax_by", "none?", "one?", "partition", "reduce",
		"reject", "reverse_each", "select", "slice_after", "slice_before",
		"slice_when", "sort", "sort_by", "sum", "take", "take_while", "tally",
		"to_h", "uniq", "zip",
		// Enumerator
		"with_index", "with_object",
		// Array
		"bsearch", "bsearch_index", "collect!", "combination", "delete_if",
		"each_index", "keep_if", "map!", "permutation", "product", "reject!",
		"repeated_combination", "repeated_permutation", "select!", "sort!",
		"sort_by!", "filter!",
		// Hash
		"each_key", "each_pair", "each_value", "fetch", "fetch_values", "transform_keys",
		"transform_keys!", "transform_values", "transform_values!",
		// Integer and Kernel
		"times", "upto", "downto", "step", "loop",
	} {
		iteratingMethods[ast.Symbol(m)] = true
	}
}

// IsIteratingSend reports whether send calls a method known to iterate over
// its receiver.
func IsIteratingSend(send *ast.Node) bool {
	if !send.Is(ast.KindSend, ast.KindCsend) {
		return false
	}
	name, ok := send.MethodName()
	return ok && iteratingMethods[name]
}

package complexity

import (
	"fmt"
	"sort"
	"sync"

	"cxlint/internal/ast"
)

// Variant decides which nodes a scoring pass visits and what each one weighs.
// Implementations must be safe for concurrent use: the scorer keeps all
// per-traversal state itself.
type Variant interface {
	// Name identifies the variant, e.g. "cyclomatic"
	Name() string

	// Counted returns the node kinds that contribute to the score
	Counted() []ast.Kind

	// Weigh returns the weight of n. parent is the node's parent in the
	// traversal, nil for the body root. Unknown kinds should weigh 0.
	Weigh(n, parent *ast.Node) float64
}

// WeightTable is a Variant backed by a plain kind -> weight mapping.
type WeightTable struct {
	// Name of the table
	Label string

	// Weights per node kind. Kinds missing here weigh 0.
	Weights map[ast.Kind]float64

	// CountedKinds limits the visited kinds. Empty means every key of Weights.
	CountedKinds []ast.Kind

	// Approximate marks a table exported from a variant whose weights depend
	// on context. It scores the same kinds but not always the same values.
	Approximate bool
}

// NewWeightTable creates a table from a name -> weight map, rejecting unknown
// kind names and negative weights.
func NewWeightTable(name string, weights map[string]float64) (*WeightTable, error) {
	wt := &WeightTable{Label: name, Weights: make(map[ast.Kind]float64, len(weights))}
	for kindName, w := range weights {
		kind, ok := ast.ParseKind(kindName)
		if !ok {
			return nil, fmt.Errorf("weight table %q: unknown node kind %q", name, kindName)
		}
		if w < 0 {
			return nil, fmt.Errorf("weight table %q: negative weight %v for %s", name, w, kindName)
		}
		wt.Weights[kind] = w
	}
	return wt, nil
}

// Name implements Variant.
func (wt *WeightTable) Name() string { return wt.Label }

// Counted implements Variant.
func (wt *WeightTable) Counted() []ast.Kind {
	if len(wt.CountedKinds) > 0 {
		return wt.CountedKinds
	}
	kinds := make([]ast.Kind, 0, len(wt.Weights))
	for k := range wt.Weights {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Weigh implements Variant.
func (wt *WeightTable) Weigh(n, _ *ast.Node) float64 {
	return wt.Weights[n.Kind]
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Variant{}
)

// Register makes a variant available by name. Registering the same name twice
// replaces the earlier variant.
func Register(v Variant) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[v.Name()] = v
}

// Lookup returns the registered variant with the given name.
func Lookup(name string) (Variant, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	v, ok := registry[name]
	return v, ok
}

// Names returns the registered variant names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package complexity scores method bodies by walking their syntax tree.
//
// The engine is fixed; what it counts and how much each node weighs comes from a
// Variant supplied by the caller (cyclomatic, perceived, or a table loaded from
// TOML).
package complexity

import (
	"strconv"
	"strings"

	"cxlint/internal/ast"
)

// Baseline is the score of a body with no counted nodes.
const Baseline = 1.0

// Result contains the score for a single body.
type Result struct {
	// Score is Baseline plus the weight of every counted node
	Score float64 `json:"score"`

	// Vector breaks the score down by node kind, for messages only
	Vector Vector `json:"vector"`
}

// Component is one entry of a Vector.
type Component struct {
	Kind   ast.Kind `json:"-"`
	Name   string   `json:"kind"`
	Count  int      `json:"count"`
	Weight float64  `json:"weight"`
}

// Vector is the per-kind breakdown of a score in first-seen, pre-order order.
type Vector []Component

func (v *Vector) add(kind ast.Kind, weight float64) {
	for i := range *v {
		if (*v)[i].Kind == kind {
			(*v)[i].Count++
			(*v)[i].Weight += weight
			return
		}
	}
	*v = append(*v, Component{Kind: kind, Name: kind.String(), Count: 1, Weight: weight})
}

// Total returns the summed weight of all components.
func (v Vector) Total() float64 {
	total := 0.0
	for _, c := range v {
		total += c.Weight
	}
	return total
}

// String renders the vector as <if: 3, and: 2>.
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = c.Name + ": " + FormatScore(c.Weight)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// FormatScore renders whole scores without a fraction and others with up to two
// decimals.
func FormatScore(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

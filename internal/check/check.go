// Package check finds method definitions, scores them and reports the ones
// whose complexity exceeds the configured maximum.
package check

import (
	"math"
	"regexp"
	"strings"

	"cxlint/internal/ast"
	"cxlint/internal/complexity"
)

// Rule pairs a scoring variant with the message used to report it.
type Rule struct {
	// Name is the reported rule name, e.g. Metrics/CyclomaticComplexity
	Name string

	Variant complexity.Variant

	// Message is a template with %{method}, %{complexity}, %{max},
	// %{vector} (alias %{abc_vector}) and %{rule} placeholders.
	Message string

	// DefaultMax applies when the configuration does not set one
	DefaultMax float64
}

// DefaultMessage is used by rules without a template of their own.
const DefaultMessage = "Complexity for %{method} is too high. [%{complexity}/%{max}]"

// Format renders the rule message for v.
func (r *Rule) Format(v Violation) string {
	tmpl := r.Message
	if tmpl == "" {
		tmpl = DefaultMessage
	}
	return strings.NewReplacer(
		"%{method}", v.Name,
		"%{complexity}", complexity.FormatScore(v.Score),
		"%{max}", complexity.FormatScore(v.Max),
		"%{abc_vector}", v.Vector.String(),
		"%{vector}", v.Vector.String(),
		"%{rule}", r.Name,
	).Replace(tmpl)
}

// BuiltinRules returns the rules backed by the built-in variants.
func BuiltinRules() []*Rule {
	return []*Rule{
		{
			Name:       "Metrics/CyclomaticComplexity",
			Variant:    complexity.Cyclomatic,
			Message:    "Cyclomatic complexity for %{method} is too high. [%{complexity}/%{max}]",
			DefaultMax: 7,
		},
		{
			Name:       "Metrics/PerceivedComplexity",
			Variant:    complexity.Perceived,
			Message:    "Perceived complexity for %{method} is too high. [%{complexity}/%{max}]",
			DefaultMax: 8,
		},
	}
}

// Policy is the per-rule threshold and ignore list.
type Policy struct {
	Max float64

	// IgnoredNames are method names that are never scored
	IgnoredNames []string

	// IgnoredPatterns skip every method whose name matches
	IgnoredPatterns []*regexp.Regexp
}

// Ignored reports whether a method name is exempt from scoring.
func (p Policy) Ignored(name string) bool {
	for _, n := range p.IgnoredNames {
		if n == name {
			return true
		}
	}
	for _, re := range p.IgnoredPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Violation is a definition whose score exceeds the maximum.
type Violation struct {
	Rule    string
	Name    string
	Kind    DefinitionKind
	Score   float64
	Vector  complexity.Vector
	Max     float64
	Loc     ast.Loc
	Message string
}

// SuggestedMax is the smallest whole maximum that would accept this
// definition. Reporters that auto-correct configuration raise Max to it.
func (v Violation) SuggestedMax() int {
	return int(math.Ceil(v.Score))
}

// Reporter receives violations as they are found.
type Reporter interface {
	Report(Violation)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Violation)

// Report implements Reporter.
func (f ReporterFunc) Report(v Violation) { f(v) }

// Collector is a Reporter that keeps every violation.
type Collector struct {
	Violations []Violation
}

// Report implements Reporter.
func (c *Collector) Report(v Violation) {
	c.Violations = append(c.Violations, v)
}

// Checker applies one rule to syntax trees.
// A Checker holds no per-tree state and can be shared between goroutines.
type Checker struct {
	rule   *Rule
	policy Policy
	scorer *complexity.Scorer
}

// New creates a checker for rule with the given policy.
func New(rule *Rule, policy Policy) *Checker {
	return &Checker{
		rule:   rule,
		policy: policy,
		scorer: complexity.NewScorer(rule.Variant),
	}
}

// Rule returns the rule this checker applies.
func (c *Checker) Rule() *Rule { return c.rule }

// Policy returns the checker's policy.
func (c *Checker) Policy() Policy { return c.policy }

// Check scores every definition under root and reports violations to r.
// It returns the number of definitions that were scored.
func (c *Checker) Check(root *ast.Node, r Reporter) int {
	scored := 0
	for _, cand := range Discover(root) {
		v, ok, evaluated := c.evaluate(cand)
		if evaluated {
			scored++
		}
		if ok {
			r.Report(v)
		}
	}
	return scored
}

// CheckCandidate scores a single definition. It returns false when the
// definition is ignored, empty, or within the maximum.
func (c *Checker) CheckCandidate(cand Candidate) (Violation, bool) {
	v, ok, _ := c.evaluate(cand)
	return v, ok
}

func (c *Checker) evaluate(cand Candidate) (Violation, bool, bool) {
	if c.policy.Ignored(cand.Name) {
		return Violation{}, false, false
	}
	// Empty methods are always accepted.
	if cand.Body == nil {
		return Violation{}, false, false
	}

	res := c.scorer.Score(cand.Body)
	if res.Score <= c.policy.Max {
		return Violation{}, false, true
	}

	v := Violation{
		Rule:   c.rule.Name,
		Name:   cand.Name,
		Kind:   cand.Kind,
		Score:  res.Score,
		Vector: res.Vector,
		Max:    c.policy.Max,
		Loc:    cand.Node.Loc,
	}
	v.Message = c.rule.Format(v)
	return v, true, true
}

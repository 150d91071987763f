package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"cxlint/internal/ast"
	"cxlint/internal/cache"
	"cxlint/internal/check"
	"cxlint/internal/complexity"
	"cxlint/internal/errors"
	"cxlint/internal/rubyparse"
)

func lvar(name string) *ast.Node { return ast.New(ast.KindLvar, ast.Symbol(name)) }

func iff(cond, then *ast.Node) *ast.Node {
	return ast.New(ast.KindIf, cond, then, nil).WithKeyword("if")
}

func and(a, b *ast.Node) *ast.Node { return ast.New(ast.KindAnd, a, b) }

func def(name string, line int, stmts ...*ast.Node) *ast.Node {
	var body *ast.Node
	switch len(stmts) {
	case 0:
	case 1:
		body = stmts[0]
	default:
		children := make([]any, len(stmts))
		for i, s := range stmts {
			children[i] = s
		}
		body = ast.New(ast.KindBegin, children...)
	}
	return ast.New(ast.KindDef, ast.Symbol(name), ast.New(ast.KindArgs), body).
		At(ast.Loc{Line: line, Column: 2, EndLine: line + 5})
}

// branchy has cyclomatic complexity 6.
func branchy(name string, line int) *ast.Node {
	return def(name, line,
		iff(and(lvar("a"), lvar("b")), lvar("x")),
		iff(and(lvar("c"), lvar("d")), lvar("x")),
		iff(lvar("e"), lvar("x")),
	)
}

func simple(name string, line int) *ast.Node {
	return def(name, line, iff(lvar("a"), lvar("b")))
}

func program(defs ...*ast.Node) *ast.Node {
	children := make([]any, len(defs))
	for i, d := range defs {
		children[i] = d
	}
	return ast.New(ast.KindBegin, children...)
}

// fakeParser maps source text to prepared trees.
type fakeParser struct {
	trees map[string]*ast.Node
	calls *atomic.Int64
}

func (p fakeParser) Parse(_ context.Context, source []byte) (*ast.Node, error) {
	p.calls.Add(1)
	src := string(source)
	if strings.HasPrefix(src, "syntax") {
		return nil, &rubyparse.SyntaxError{Line: 2, Column: 4}
	}
	return p.trees[src], nil
}

func newFakeParser(trees map[string]*ast.Node) (func() Parser, *atomic.Int64) {
	calls := &atomic.Int64{}
	return func() Parser { return fakeParser{trees: trees, calls: calls} }, calls
}

func cyclomaticChecker(max float64, ignored ...string) *check.Checker {
	return check.New(check.BuiltinRules()[0], check.Policy{Max: max, IgnoredNames: ignored})
}

func TestLintTree(t *testing.T) {
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(5)}})

	got := l.LintTree("app/user.rb", program(simple("ok", 1), branchy("branchy", 10)))
	if len(got) != 1 {
		t.Fatalf("LintTree() returned %d offenses, want 1: %+v", len(got), got)
	}

	o := got[0]
	if o.Rule != "Metrics/CyclomaticComplexity" || o.Method != "branchy" || o.Kind != "def" {
		t.Errorf("offense identity = %s %s %s", o.Rule, o.Method, o.Kind)
	}
	if o.Line != 10 || o.Column != 2 || o.EndLine != 15 {
		t.Errorf("position = %d:%d-%d, want 10:2-15", o.Line, o.Column, o.EndLine)
	}
	if o.Score != 6 || o.Max != 5 || o.SuggestedMax != 6 {
		t.Errorf("Score/Max/SuggestedMax = %v/%v/%d, want 6/5/6", o.Score, o.Max, o.SuggestedMax)
	}
	want := "Cyclomatic complexity for branchy is too high. [6/5]"
	if o.Message != want {
		t.Errorf("Message = %q, want %q", o.Message, want)
	}
	if o.Vector.Total() != 5 {
		t.Errorf("Vector.Total() = %v, want 5", o.Vector.Total())
	}
}

func TestLintTree_MultipleRulesAndIgnores(t *testing.T) {
	perceived := check.New(check.BuiltinRules()[1], check.Policy{Max: 1})
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(1, "skipped"), perceived}})

	got := l.LintTree("a.rb", program(simple("first", 1), simple("skipped", 5)))

	var rules []string
	for _, o := range got {
		rules = append(rules, o.Rule+"#"+o.Method)
	}
	want := "Metrics/CyclomaticComplexity#first,Metrics/PerceivedComplexity#first,Metrics/PerceivedComplexity#skipped"
	if strings.Join(rules, ",") != want {
		t.Errorf("offenses = %v, want %s", rules, want)
	}
}

func TestLintTree_EmptyProgram(t *testing.T) {
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(0)}})
	if got := l.LintTree("empty.rb", nil); len(got) != 0 {
		t.Errorf("LintTree(nil) = %v, want none", got)
	}
}

func TestLintSource_SyntaxError(t *testing.T) {
	np, _ := newFakeParser(nil)
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(5)}, NewParser: np})

	res := l.LintSource(context.Background(), "broken.rb", []byte("syntax error here"))
	if res.Error == nil {
		t.Fatal("expected an error")
	}
	if code := errors.CodeOf(res.Error); code != errors.ParseFailed {
		t.Errorf("CodeOf() = %s, want %s", code, errors.ParseFailed)
	}
	if !strings.Contains(res.Error.Error(), "line 2, column 4") {
		t.Errorf("Error() = %q, want the position", res.Error.Error())
	}
}

func TestLintSource_Cache(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	src := "class User; def branchy; end; end"
	np, calls := newFakeParser(map[string]*ast.Node{src: program(branchy("branchy", 1), simple("ok", 9))})
	ctx := context.Background()

	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(5)}, NewParser: np, Cache: c})
	first := l.LintSource(ctx, "user.rb", []byte(src))
	if first.Error != nil || first.Cached {
		t.Fatalf("first run = cached %v, err %v", first.Cached, first.Error)
	}
	if first.Candidates != 2 || len(first.Offenses) != 1 {
		t.Fatalf("first run = %d candidates, %d offenses", first.Candidates, len(first.Offenses))
	}

	second := l.LintSource(ctx, "user.rb", []byte(src))
	if !second.Cached {
		t.Error("second run should be served from the cache")
	}
	if calls.Load() != 1 {
		t.Errorf("parser called %d times, want 1", calls.Load())
	}
	if second.Candidates != 2 || len(second.Offenses) != 1 || second.Offenses[0].Message != first.Offenses[0].Message {
		t.Errorf("cached result differs: %+v", second)
	}

	// A different threshold is a different rule set.
	stricter := New(Options{Checkers: []*check.Checker{cyclomaticChecker(1)}, NewParser: np, Cache: c})
	third := stricter.LintSource(ctx, "user.rb", []byte(src))
	if third.Cached {
		t.Error("changed max must not hit the cache")
	}
	if len(third.Offenses) != 2 {
		t.Errorf("stricter run found %d offenses, want 2", len(third.Offenses))
	}
}

func TestLintFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.rb": "src-a",
		"b.rb": "src-b",
		"c.rb": "syntax",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	np, _ := newFakeParser(map[string]*ast.Node{
		"src-a": program(branchy("a", 1)),
		"src-b": program(simple("b", 1)),
	})
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(5)}, NewParser: np})

	paths := []string{
		filepath.Join(dir, "b.rb"),
		filepath.Join(dir, "a.rb"),
		filepath.Join(dir, "missing.rb"),
		filepath.Join(dir, "c.rb"),
	}
	results, err := l.LintFiles(context.Background(), paths, 2)
	if err != nil {
		t.Fatalf("LintFiles() error = %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %s, want %s", i, r.Path, paths[i])
		}
	}

	tests := []struct {
		idx      int
		offenses int
		code     errors.ErrorCode
	}{
		{0, 0, ""},
		{1, 1, ""},
		{2, 0, errors.UnsupportedFile},
		{3, 0, errors.ParseFailed},
	}
	for _, tt := range tests {
		r := results[tt.idx]
		if len(r.Offenses) != tt.offenses {
			t.Errorf("%s: %d offenses, want %d", filepath.Base(r.Path), len(r.Offenses), tt.offenses)
		}
		if tt.code == "" && r.Error != nil {
			t.Errorf("%s: unexpected error %v", filepath.Base(r.Path), r.Error)
		}
		if tt.code != "" && errors.CodeOf(r.Error) != tt.code {
			t.Errorf("%s: error = %v, want %s", filepath.Base(r.Path), r.Error, tt.code)
		}
	}
}

func TestLintFiles_Cancelled(t *testing.T) {
	np, _ := newFakeParser(nil)
	l := New(Options{Checkers: []*check.Checker{cyclomaticChecker(5)}, NewParser: np})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.LintFiles(ctx, []string{"a.rb", "b.rb"}, 1); err == nil {
		t.Error("LintFiles() with a cancelled context should fail")
	}
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint([]*check.Checker{cyclomaticChecker(5)})

	tests := []struct {
		name     string
		checkers []*check.Checker
	}{
		{"max", []*check.Checker{cyclomaticChecker(6)}},
		{"ignored", []*check.Checker{cyclomaticChecker(5, "initialize")}},
		{"extra rule", []*check.Checker{cyclomaticChecker(5), check.New(check.BuiltinRules()[1], check.Policy{Max: 8})}},
		{"variant", []*check.Checker{check.New(&check.Rule{
			Name:    "Metrics/CyclomaticComplexity",
			Variant: complexity.Perceived,
			Message: check.BuiltinRules()[0].Message,
		}, check.Policy{Max: 5})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(tt.checkers) == base {
				t.Errorf("Fingerprint() unchanged by %s", tt.name)
			}
		})
	}
	if Fingerprint([]*check.Checker{cyclomaticChecker(5)}) != base {
		t.Error("Fingerprint() is not deterministic")
	}
}

package pattern

import (
	"errors"
	"testing"

	"cxlint/internal/ast"
)

func defineMethodBlock(nameArg *ast.Node, body *ast.Node) *ast.Node {
	return ast.New(ast.KindBlock,
		ast.New(ast.KindSend, nil, ast.Symbol("define_method"), nameArg),
		ast.New(ast.KindArgs),
		body,
	)
}

func TestDefineMethod(t *testing.T) {
	body := ast.New(ast.KindSend, nil, ast.Symbol("work"))

	tests := []struct {
		name     string
		node     *ast.Node
		wantOK   bool
		wantName any
	}{
		{
			name:     "symbol name",
			node:     defineMethodBlock(ast.New(ast.KindSym, ast.Symbol("foo")), body),
			wantOK:   true,
			wantName: ast.Symbol("foo"),
		},
		{
			name:     "string name",
			node:     defineMethodBlock(ast.New(ast.KindStr, "bar"), body),
			wantOK:   true,
			wantName: "bar",
		},
		{
			name:     "empty body still matches",
			node:     defineMethodBlock(ast.New(ast.KindSym, ast.Symbol("foo")), nil),
			wantOK:   true,
			wantName: ast.Symbol("foo"),
		},
		{
			name:   "dynamic name",
			node:   defineMethodBlock(ast.New(ast.KindLvar, ast.Symbol("name")), body),
			wantOK: false,
		},
		{
			name: "explicit receiver",
			node: ast.New(ast.KindBlock,
				ast.New(ast.KindSend, ast.New(ast.KindSelf), ast.Symbol("define_method"), ast.New(ast.KindSym, ast.Symbol("foo"))),
				ast.New(ast.KindArgs),
				body,
			),
			wantOK: false,
		},
		{
			name: "other method",
			node: ast.New(ast.KindBlock,
				ast.New(ast.KindSend, nil, ast.Symbol("each"), ast.New(ast.KindSym, ast.Symbol("foo"))),
				ast.New(ast.KindArgs),
				body,
			),
			wantOK: false,
		},
		{
			name:   "not a block",
			node:   ast.New(ast.KindSend, nil, ast.Symbol("define_method"), ast.New(ast.KindSym, ast.Symbol("foo"))),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captures, ok := Match(DefineMethod, tt.node)
			if ok != tt.wantOK {
				t.Fatalf("Match() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(captures) != 1 {
				t.Fatalf("len(captures) = %d, want 1", len(captures))
			}
			if captures[0] != tt.wantName {
				t.Errorf("capture = %#v, want %#v", captures[0], tt.wantName)
			}
		})
	}
}

func TestMatch_Rest(t *testing.T) {
	p := Node(ast.KindSend, Nil(), Sym("puts"), Rest())

	tests := []struct {
		name string
		args []any
		want bool
	}{
		{"no args", nil, true},
		{"one arg", []any{ast.New(ast.KindInt, int64(1))}, true},
		{"many args", []any{ast.New(ast.KindInt, int64(1)), ast.New(ast.KindInt, int64(2))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			children := append([]any{nil, ast.Symbol("puts")}, tt.args...)
			n := &ast.Node{Kind: ast.KindSend, Children: children}
			if got := Matches(p, n); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch_RestInMiddle(t *testing.T) {
	p := MustCompile(`(array $_ ... (int 3))`)

	n := ast.New(ast.KindArray,
		ast.New(ast.KindInt, int64(1)),
		ast.New(ast.KindInt, int64(2)),
		ast.New(ast.KindInt, int64(3)),
	)

	captures, ok := Match(p, n)
	if !ok {
		t.Fatal("expected match")
	}
	first, _ := captures[0].(*ast.Node)
	if first.String() != "(int 1)" {
		t.Errorf("capture = %v, want (int 1)", first)
	}

	if Matches(p, ast.New(ast.KindArray, ast.New(ast.KindInt, int64(3)), ast.New(ast.KindInt, int64(4)))) {
		t.Error("array not ending in 3 should not match")
	}
}

func TestMatch_CaptureRest(t *testing.T) {
	p := MustCompile(`(send nil? :foo $...)`)
	n := ast.New(ast.KindSend, nil, ast.Symbol("foo"), ast.New(ast.KindInt, int64(1)), ast.New(ast.KindInt, int64(2)))

	captures, ok := Match(p, n)
	if !ok {
		t.Fatal("expected match")
	}
	seq, _ := captures[0].([]any)
	if len(seq) != 2 {
		t.Errorf("captured %d values, want 2", len(seq))
	}
}

func TestMatch_AlternativeRollsBackCaptures(t *testing.T) {
	// The first option captures and then fails; its capture must not leak.
	p := Alt(
		Node(ast.KindSend, Capture(Any()), Sym("nope")),
		Node(ast.KindSend, Nil(), Capture(Any())),
	)
	n := ast.New(ast.KindSend, nil, ast.Symbol("yes"))

	captures, ok := Match(p, n)
	if !ok {
		t.Fatal("expected match")
	}
	if len(captures) != 1 || captures[0] != ast.Symbol("yes") {
		t.Errorf("captures = %v, want [yes]", captures)
	}
}

func TestMatch_NestedCaptureOrder(t *testing.T) {
	p := MustCompile(`$(send $_ :bar)`)
	recv := ast.New(ast.KindLvar, ast.Symbol("x"))
	n := ast.New(ast.KindSend, recv, ast.Symbol("bar"))

	captures, ok := Match(p, n)
	if !ok {
		t.Fatal("expected match")
	}
	if len(captures) != 2 {
		t.Fatalf("len(captures) = %d, want 2", len(captures))
	}
	if captures[0] != n || captures[1] != recv {
		t.Errorf("captures out of order: %v", captures)
	}
}

func TestMatch_DoesNotMutate(t *testing.T) {
	n := defineMethodBlock(ast.New(ast.KindSym, ast.Symbol("foo")), ast.New(ast.KindNil))
	before := n.String()

	Match(DefineMethod, n)
	Match(MustCompile(`(block ... $_)`), n)

	if after := n.String(); after != before {
		t.Errorf("tree changed: %s -> %s", before, after)
	}
}

func TestCompile_RoundTrip(t *testing.T) {
	tests := []string{
		`(block (send nil? :define_method ({sym str} $_)) args _)`,
		`(send _ :foo ...)`,
		`{lvar ivar}`,
		`(int 42)`,
		`(str "a b")`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			p, err := Compile(src)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := p.String(); got != src {
				t.Errorf("String() = %s, want %s", got, src)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"unclosed node", `(send nil?`},
		{"unknown kind", `(frobnicate _)`},
		{"unknown bare kind", `frobnicate`},
		{"stray close", `)`},
		{"trailing input", `(send) _`},
		{"empty symbol", `(sym :)`},
		{"unterminated string", `(str "abc)`},
		{"empty alternative", `{}`},
		{"non-kind head", `({:a :b} _)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			if err == nil {
				t.Fatalf("Compile(%q) expected error", tt.src)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("error type = %T, want *SyntaxError", err)
			}
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on bad input")
		}
	}()
	MustCompile(`(`)
}

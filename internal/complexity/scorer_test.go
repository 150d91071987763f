package complexity

import (
	"sync"
	"testing"

	"cxlint/internal/ast"
)

func lvar(name string) *ast.Node { return ast.New(ast.KindLvar, ast.Symbol(name)) }

func send(recv *ast.Node, name string, args ...any) *ast.Node {
	children := append([]any{recv, ast.Symbol(name)}, args...)
	return ast.New(ast.KindSend, children...)
}

func csend(recv *ast.Node, name string) *ast.Node {
	return ast.New(ast.KindCsend, recv, ast.Symbol(name))
}

func iff(cond, then, els *ast.Node) *ast.Node {
	return ast.New(ast.KindIf, cond, then, els).WithKeyword("if")
}

func and(a, b *ast.Node) *ast.Node { return ast.New(ast.KindAnd, a, b) }

func begin(stmts ...*ast.Node) *ast.Node {
	children := make([]any, len(stmts))
	for i, s := range stmts {
		children[i] = s
	}
	return ast.New(ast.KindBegin, children...)
}

func lvasgn(name string, value *ast.Node) *ast.Node {
	return ast.New(ast.KindLvasgn, ast.Symbol(name), value)
}

func intLit(i int64) *ast.Node { return ast.New(ast.KindInt, i) }

func mustTable(t *testing.T, weights map[string]float64) *WeightTable {
	t.Helper()
	wt, err := NewWeightTable("test", weights)
	if err != nil {
		t.Fatalf("NewWeightTable() error = %v", err)
	}
	return wt
}

// exampleTable is the conditional/logical/send table used throughout.
func exampleTable(t *testing.T) *WeightTable {
	return mustTable(t, map[string]float64{"if": 1, "and": 1, "send": 0.2})
}

func TestScore_Baseline(t *testing.T) {
	s := NewScorer(exampleTable(t))

	tests := []struct {
		name string
		body *ast.Node
	}{
		{"literal", intLit(1)},
		{"local", lvar("x")},
		{"nil body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(tt.body)
			if res.Score != Baseline {
				t.Errorf("Score = %v, want %v", res.Score, Baseline)
			}
			if len(res.Vector) != 0 {
				t.Errorf("Vector = %v, want empty", res.Vector)
			}
		})
	}
}

func TestScore_WeightTableExample(t *testing.T) {
	s := NewScorer(exampleTable(t))

	// three ifs, two of them guarded by &&
	body := begin(
		iff(and(lvar("a"), lvar("b")), intLit(1), nil),
		iff(and(lvar("c"), lvar("d")), intLit(2), nil),
		iff(lvar("e"), intLit(3), nil),
	)

	res := s.Score(body)
	if res.Score != 6 {
		t.Errorf("Score = %v, want 6", res.Score)
	}
	if got := res.Vector.String(); got != "<if: 3, and: 2>" {
		t.Errorf("Vector = %s, want <if: 3, and: 2>", got)
	}
	if res.Vector.Total()+Baseline != res.Score {
		t.Errorf("Vector total %v does not add up to score %v", res.Vector.Total(), res.Score)
	}

	small := begin(
		iff(lvar("a"), intLit(1), nil),
		iff(lvar("b"), intLit(2), nil),
	)
	if got := s.Score(small).Score; got != 3 {
		t.Errorf("two-branch Score = %v, want 3", got)
	}
}

func TestScore_FractionalWeights(t *testing.T) {
	s := NewScorer(exampleTable(t))

	body := begin(send(nil, "foo"), send(nil, "bar"))
	res := s.Score(body)
	if res.Score < 1.39 || res.Score > 1.41 {
		t.Errorf("Score = %v, want 1.4", res.Score)
	}
	if got := res.Vector.String(); got != "<send: 0.4>" {
		t.Errorf("Vector = %s, want <send: 0.4>", got)
	}
}

func TestScore_UnknownKindWeighsZero(t *testing.T) {
	wt := mustTable(t, map[string]float64{"if": 1})
	wt.CountedKinds = []ast.Kind{ast.KindIf, ast.KindWhile, ast.KindUnknown}
	s := NewScorer(wt)

	body := begin(
		ast.New(ast.KindWhile, lvar("x"), intLit(1)),
		ast.New(ast.KindUnknown),
		iff(lvar("y"), intLit(1), nil),
	)
	if got := s.Score(body).Score; got != 2 {
		t.Errorf("Score = %v, want 2", got)
	}
}

func TestScore_Monotonic(t *testing.T) {
	s := NewScorer(exampleTable(t))

	stmts := []*ast.Node{iff(lvar("a"), intLit(1), nil)}
	prev := s.Score(begin(stmts...)).Score

	additions := []*ast.Node{
		send(nil, "log"),
		and(lvar("b"), lvar("c")),
		intLit(9),
		iff(and(lvar("d"), lvar("e")), send(nil, "x"), nil),
	}
	for _, add := range additions {
		stmts = append(stmts, add)
		got := s.Score(begin(stmts...)).Score
		if got < prev {
			t.Errorf("adding %v lowered score from %v to %v", add, prev, got)
		}
		prev = got
	}
}

func TestScore_NegativeWeightClamped(t *testing.T) {
	wt := &WeightTable{
		Label:   "broken",
		Weights: map[ast.Kind]float64{ast.KindIf: -5, ast.KindAnd: 1},
	}
	s := NewScorer(wt)

	got := s.Score(iff(and(lvar("a"), lvar("b")), intLit(1), nil)).Score
	if got != 2 {
		t.Errorf("Score = %v, want 2", got)
	}
}

func TestScore_RepeatedCsend(t *testing.T) {
	s := NewScorer(mustTable(t, map[string]float64{"csend": 1}))

	tests := []struct {
		name string
		body *ast.Node
		want float64
	}{
		{
			name: "same local twice",
			body: begin(csend(lvar("user"), "name"), csend(lvar("user"), "email")),
			want: 2,
		},
		{
			name: "distinct locals",
			body: begin(csend(lvar("user"), "name"), csend(lvar("account"), "name")),
			want: 3,
		},
		{
			name: "uncounted reassignment keeps the chain",
			body: begin(
				csend(lvar("user"), "name"),
				lvasgn("user", send(nil, "other_user")),
				csend(lvar("user"), "name"),
			),
			want: 2,
		},
		{
			name: "assignment to another local keeps the chain",
			body: begin(
				csend(lvar("user"), "name"),
				lvasgn("other", intLit(1)),
				csend(lvar("user"), "email"),
			),
			want: 2,
		},
		{
			name: "non-local receivers always count",
			body: begin(csend(send(nil, "user"), "name"), csend(send(nil, "user"), "name")),
			want: 3,
		},
		{
			name: "chained csend counts the outer link",
			body: begin(
				csend(csend(lvar("user"), "account"), "owner"),
				csend(lvar("user"), "email"),
			),
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.body).Score; got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_CountedReassignmentResetsChain(t *testing.T) {
	body := begin(
		csend(lvar("user"), "name"),
		lvasgn("user", send(nil, "other_user")),
		csend(lvar("user"), "name"),
	)

	tests := []struct {
		name    string
		weights map[string]float64
		want    float64
	}{
		{"lvasgn weighs nothing", map[string]float64{"csend": 1, "lvasgn": 0}, 3},
		{"lvasgn weighs one", map[string]float64{"csend": 1, "lvasgn": 1}, 4},
		{"lvasgn not counted", map[string]float64{"csend": 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewScorer(mustTable(t, tt.weights)).Score(body).Score; got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_BuiltinsIgnoreReassignment(t *testing.T) {
	// a = x; a&.b; a = y; a&.c
	body := begin(
		lvasgn("a", send(nil, "x")),
		csend(lvar("a"), "b"),
		lvasgn("a", send(nil, "y")),
		csend(lvar("a"), "c"),
	)
	for _, v := range []Variant{Cyclomatic, Perceived} {
		if got := NewScorer(v).Score(body).Score; got != 2 {
			t.Errorf("%s Score = %v, want 2", v.Name(), got)
		}
	}
}

func TestScore_RepeatedCsendIsPerTraversal(t *testing.T) {
	s := NewScorer(mustTable(t, map[string]float64{"csend": 1}))
	body := begin(csend(lvar("user"), "name"), csend(lvar("user"), "email"))

	first := s.Score(body).Score
	second := s.Score(body).Score
	if first != second {
		t.Errorf("scores differ between traversals: %v vs %v", first, second)
	}
	if first != 2 {
		t.Errorf("Score = %v, want 2", first)
	}
}

func TestDiscount_AssignResetsChain(t *testing.T) {
	d := newDiscount()
	c := csend(lvar("x"), "foo")

	if d.repeated(c) {
		t.Error("first csend should not be repeated")
	}
	if !d.repeated(csend(lvar("x"), "bar")) {
		t.Error("second csend on x should be repeated")
	}

	d.assign("x")
	if d.repeated(csend(lvar("x"), "baz")) {
		t.Error("csend after reassignment should start a new chain")
	}
}

func TestScore_ConcurrentUse(t *testing.T) {
	s := NewScorer(Cyclomatic)
	body := begin(
		iff(and(lvar("a"), lvar("b")), csend(lvar("c"), "d"), nil),
		csend(lvar("c"), "e"),
		ast.New(ast.KindBlock, send(lvar("items"), "each"), ast.New(ast.KindArgs), intLit(1)),
	)
	want := s.Score(body)

	var wg sync.WaitGroup
	errs := make(chan float64, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := s.Score(body); got.Score != want.Score {
				errs <- got.Score
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("concurrent Score = %v, want %v", got, want.Score)
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{6, "6"},
		{10, "10"},
		{0, "0"},
		{1.4, "1.4"},
		{2.25, "2.25"},
		{0.2, "0.2"},
	}

	for _, tt := range tests {
		if got := FormatScore(tt.in); got != tt.want {
			t.Errorf("FormatScore(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

//go:build cgo

package rubyparse

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxlint/internal/ast"
)

// scope tracks which identifiers are local variables. Blocks inherit their
// parent's locals, definitions and class bodies start fresh.
type scope struct {
	parent    *scope
	locals    map[string]bool
	inherit   bool
	numparams int
}

func newScope(parent *scope, inherit bool) *scope {
	return &scope{parent: parent, locals: make(map[string]bool), inherit: inherit}
}

func (s *scope) declare(name string) { s.locals[name] = true }

func (s *scope) has(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.locals[name] {
			return true
		}
		if !sc.inherit {
			return false
		}
	}
	return false
}

// converter maps a tree-sitter concrete syntax tree onto ast nodes.
type converter struct {
	src   []byte
	scope *scope

	// heredocs maps the start byte of each heredoc_beginning to its body
	heredocs map[uint32]*sitter.Node
}

func newConverter(src []byte) *converter {
	return &converter{src: src, scope: newScope(nil, false)}
}

func (c *converter) push(inherit bool) func() {
	prev := c.scope
	c.scope = newScope(prev, inherit)
	return func() { c.scope = prev }
}

// ignored node types never reach the tree
var ignored = map[string]bool{
	"comment":         true,
	"empty_statement": true,
	"heredoc_body":    true,
	"uninterpreted":   true,
}

// parameter lists and superclasses are not part of a definition body
var headerTypes = map[string]bool{
	"method_parameters": true,
	"parameters":        true,
	"bare_parameters":   true,
	"block_parameters":  true,
	"lambda_parameters": true,
	"superclass":        true,
}

var patternTypes = map[string]bool{
	"array_pattern":                true,
	"find_pattern":                 true,
	"hash_pattern":                 true,
	"alternative_pattern":          true,
	"as_pattern":                   true,
	"keyword_pattern":              true,
	"splat_parameter":              true,
	"hash_splat_parameter":         true,
	"parenthesized_pattern":        true,
	"variable_reference_pattern":   true,
	"expression_reference_pattern": true,
}

func loc(n *sitter.Node) ast.Loc {
	start, end := n.StartPoint(), n.EndPoint()
	return ast.Loc{
		Line:      int(start.Row) + 1,
		Column:    int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column),
	}
}

func (c *converter) mk(at *sitter.Node, kind ast.Kind, children ...any) *ast.Node {
	n := ast.New(kind, children...)
	n.Loc = loc(at)
	return n
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *converter) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		ch := n.NamedChild(i)
		if ch == nil || ignored[ch.Type()] {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (c *converter) list(nodes []*sitter.Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, c.conv(n))
	}
	return out
}

type span struct {
	start, end uint32
	typ        string
}

func spanOf(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

func (c *converter) program(root *sitter.Node) *ast.Node {
	c.indexHeredocs(root)
	return c.statements(root, c.named(root))
}

// indexHeredocs pairs every heredoc opener with its body. Bodies follow the
// line that opens them, in the same order as their openers.
func (c *converter) indexHeredocs(root *sitter.Node) {
	var openers, bodies []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "heredoc_beginning":
			openers = append(openers, n)
		case "heredoc_body":
			bodies = append(bodies, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if ch := n.Child(i); ch != nil {
				walk(ch)
			}
		}
	}
	walk(root)

	c.heredocs = make(map[uint32]*sitter.Node, len(openers))
	for i, op := range openers {
		if i < len(bodies) {
			c.heredocs[op.StartByte()] = bodies[i]
		}
	}
}

// heredoc converts a heredoc at its opener: str for plain content, dstr
// when the body interpolates.
func (c *converter) heredoc(n *sitter.Node) *ast.Node {
	body := c.heredocs[n.StartByte()]
	if body == nil {
		return c.mk(n, ast.KindStr, "")
	}
	var parts []any
	dynamic := false
	var text strings.Builder
	for _, ch := range c.named(body) {
		switch ch.Type() {
		case "heredoc_end":
			continue
		case "interpolation":
			dynamic = true
			parts = append(parts, c.mk(ch, ast.KindBegin, c.list(c.named(ch))...))
		default:
			parts = append(parts, c.mk(ch, ast.KindStr, c.text(ch)))
			text.WriteString(c.text(ch))
		}
	}
	if !dynamic {
		return c.mk(n, ast.KindStr, text.String())
	}
	return c.mk(n, ast.KindDstr, parts...)
}

// statements collapses a statement list: nil when empty, the statement
// itself when alone, a begin node otherwise.
func (c *converter) statements(at *sitter.Node, nodes []*sitter.Node) *ast.Node {
	stmts := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if nd := c.conv(n); nd != nil {
			stmts = append(stmts, nd)
		}
	}
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		return stmts[0].(*ast.Node)
	}
	return c.mk(at, ast.KindBegin, stmts...)
}

// compound converts a body that may carry rescue, else and ensure clauses.
func (c *converter) compound(at *sitter.Node, nodes []*sitter.Node) *ast.Node {
	var stmts, rescues []*sitter.Node
	var elseNode, ensureNode *sitter.Node
	for _, n := range nodes {
		switch n.Type() {
		case "rescue":
			rescues = append(rescues, n)
		case "else":
			elseNode = n
		case "ensure":
			ensureNode = n
		default:
			stmts = append(stmts, n)
		}
	}
	if len(rescues) == 0 && elseNode != nil {
		stmts = append(stmts, c.named(elseNode)...)
		elseNode = nil
	}

	body := c.statements(at, stmts)
	if len(rescues) > 0 {
		children := []any{body}
		for _, r := range rescues {
			children = append(children, c.resbody(r))
		}
		var elseBody *ast.Node
		if elseNode != nil {
			elseBody = c.statements(elseNode, c.named(elseNode))
		}
		children = append(children, elseBody)
		body = c.mk(rescues[0], ast.KindRescue, children...)
	}
	if ensureNode != nil {
		body = c.mk(ensureNode, ast.KindEnsure, body, c.statements(ensureNode, c.named(ensureNode)))
	}
	return body
}

func (c *converter) resbody(n *sitter.Node) *ast.Node {
	var exceptions, variable, body *ast.Node
	if ex := n.ChildByFieldName("exceptions"); ex != nil {
		exceptions = c.mk(ex, ast.KindArray, c.list(c.named(ex))...)
	}
	if v := n.ChildByFieldName("variable"); v != nil {
		if inner := c.named(v); len(inner) > 0 {
			variable = c.target(inner[0])
		}
	}
	if b := n.ChildByFieldName("body"); b != nil {
		body = c.statements(b, c.named(b))
	}
	return c.mk(n, ast.KindResbody, exceptions, variable, body)
}

// definitionBody returns the body of a def, class or block. Grammars that
// wrap the body in a field are unwrapped, otherwise every named child that
// is not one of fields or a header is part of the body.
func (c *converter) definitionBody(n *sitter.Node, fields ...string) *ast.Node {
	if b := n.ChildByFieldName("body"); b != nil {
		switch b.Type() {
		case "body_statement", "block_body", "do", "then":
			return c.compound(b, c.named(b))
		}
		return c.conv(b)
	}

	skip := make(map[span]bool, len(fields))
	for _, f := range fields {
		if ch := n.ChildByFieldName(f); ch != nil {
			skip[spanOf(ch)] = true
		}
	}
	var rest []*sitter.Node
	for _, ch := range c.named(n) {
		if skip[spanOf(ch)] || headerTypes[ch.Type()] {
			continue
		}
		rest = append(rest, ch)
	}
	return c.compound(n, rest)
}

func (c *converter) conv(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "program", "body_statement", "block_body":
		return c.compound(n, c.named(n))
	case "then", "else", "do", "ensure":
		return c.statements(n, c.named(n))
	case "parenthesized_statements":
		return c.mk(n, ast.KindBegin, c.list(c.named(n))...)
	case "begin":
		return c.kwbegin(n)

	case "method":
		return c.def(n)
	case "singleton_method":
		return c.defs(n)
	case "class":
		return c.class(n)
	case "module":
		return c.module(n)
	case "singleton_class":
		return c.sclass(n)

	case "call":
		return c.call(n)
	case "method_call":
		return c.methodCall(n)
	case "lambda":
		return c.lambda(n)
	case "element_reference":
		return c.elementReference(n)
	case "super":
		return c.mk(n, ast.KindZsuper)
	case "yield":
		return c.mk(n, ast.KindYield, c.arguments(firstNamed(c.named(n)))...)
	case "return":
		return c.mk(n, ast.KindReturn, c.arguments(firstNamed(c.named(n)))...)
	case "break":
		return c.mk(n, ast.KindBreak, c.arguments(firstNamed(c.named(n)))...)
	case "next":
		return c.mk(n, ast.KindNext, c.arguments(firstNamed(c.named(n)))...)
	case "redo":
		return c.mk(n, ast.KindRedo)
	case "retry":
		return c.mk(n, ast.KindRetry)

	case "if":
		return c.ifNode(n, "if")
	case "elsif":
		return c.ifNode(n, "elsif")
	case "unless":
		return c.unlessNode(n)
	case "conditional":
		return c.ifNode(n, "?")
	case "if_modifier":
		cond := c.conv(n.ChildByFieldName("condition"))
		body := c.conv(n.ChildByFieldName("body"))
		return c.withKeyword(c.mk(n, ast.KindIf, cond, body, (*ast.Node)(nil)), "modifier")
	case "unless_modifier":
		cond := c.conv(n.ChildByFieldName("condition"))
		body := c.conv(n.ChildByFieldName("body"))
		return c.withKeyword(c.mk(n, ast.KindIf, cond, (*ast.Node)(nil), body), "modifier")
	case "while", "until":
		kind := ast.KindWhile
		if n.Type() == "until" {
			kind = ast.KindUntil
		}
		cond := c.conv(n.ChildByFieldName("condition"))
		return c.mk(n, kind, cond, c.conv(n.ChildByFieldName("body")))
	case "while_modifier", "until_modifier":
		cond := c.conv(n.ChildByFieldName("condition"))
		body := c.conv(n.ChildByFieldName("body"))
		return c.mk(n, loopModifierKind(n.Type(), body), cond, body)
	case "for":
		return c.forNode(n)
	case "case":
		return c.caseNode(n)
	case "case_match":
		return c.caseMatch(n)
	case "rescue_modifier":
		body := c.conv(n.ChildByFieldName("body"))
		handler := c.conv(n.ChildByFieldName("handler"))
		res := c.mk(n, ast.KindResbody, (*ast.Node)(nil), (*ast.Node)(nil), handler)
		return c.mk(n, ast.KindRescue, body, res, (*ast.Node)(nil))

	case "binary":
		return c.binary(n)
	case "unary":
		return c.unary(n)
	case "assignment":
		return c.assignment(n)
	case "operator_assignment":
		return c.operatorAssignment(n)

	case "identifier":
		return c.identifier(n)
	case "self":
		return c.mk(n, ast.KindSelf)
	case "nil":
		return c.mk(n, ast.KindNil)
	case "true":
		return c.mk(n, ast.KindTrue)
	case "false":
		return c.mk(n, ast.KindFalse)
	case "constant":
		return c.mk(n, ast.KindConst, (*ast.Node)(nil), ast.Symbol(c.text(n)))
	case "scope_resolution":
		var scopeNode *ast.Node
		if s := n.ChildByFieldName("scope"); s != nil {
			scopeNode = c.conv(s)
		} else {
			scopeNode = c.mk(n, ast.KindCbase)
		}
		return c.mk(n, ast.KindConst, scopeNode, ast.Symbol(c.text(n.ChildByFieldName("name"))))
	case "instance_variable":
		return c.mk(n, ast.KindIvar, ast.Symbol(c.text(n)))
	case "class_variable":
		return c.mk(n, ast.KindCvar, ast.Symbol(c.text(n)))
	case "global_variable":
		return c.mk(n, ast.KindGvar, ast.Symbol(c.text(n)))

	case "integer":
		raw := strings.ReplaceAll(c.text(n), "_", "")
		if v, err := strconv.ParseInt(raw, 0, 64); err == nil {
			return c.mk(n, ast.KindInt, v)
		}
		return c.mk(n, ast.KindInt, raw)
	case "float":
		raw := strings.ReplaceAll(c.text(n), "_", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return c.mk(n, ast.KindFloat, v)
		}
		return c.mk(n, ast.KindFloat, raw)
	case "string", "bare_string":
		return c.str(n, ast.KindDstr)
	case "subshell":
		return c.str(n, ast.KindXstr)
	case "chained_string":
		return c.mk(n, ast.KindDstr, c.list(c.named(n))...)
	case "heredoc_beginning":
		return c.heredoc(n)
	case "character":
		return c.mk(n, ast.KindStr, strings.TrimPrefix(c.text(n), "?"))
	case "simple_symbol", "symbol":
		return c.mk(n, ast.KindSym, ast.Symbol(strings.TrimPrefix(c.text(n), ":")))
	case "hash_key_symbol":
		return c.mk(n, ast.KindSym, ast.Symbol(c.text(n)))
	case "delimited_symbol", "bare_symbol":
		return c.symbol(n)
	case "regex":
		return c.mk(n, ast.KindRegexp, c.parts(n)...)
	case "array", "string_array", "symbol_array":
		return c.mk(n, ast.KindArray, c.list(c.named(n))...)
	case "hash":
		return c.mk(n, ast.KindHash, c.list(c.named(n))...)
	case "pair":
		return c.pair(n)
	case "range":
		kind := ast.KindIrange
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "..." {
			kind = ast.KindErange
		}
		return c.mk(n, kind, c.conv(n.ChildByFieldName("begin")), c.conv(n.ChildByFieldName("end")))
	case "splat_argument":
		return c.mk(n, ast.KindSplat, c.conv(firstNamed(c.named(n))))
	case "hash_splat_argument":
		return c.mk(n, ast.KindKwsplat, c.conv(firstNamed(c.named(n))))
	case "block_argument":
		return c.mk(n, ast.KindBlockPass, c.conv(firstNamed(c.named(n))))
	case "argument_list":
		return c.mk(n, ast.KindUnknown, c.arguments(n)...)
	case "alias", "undef":
		return c.mk(n, ast.KindUnknown)
	}

	return c.mk(n, ast.KindUnknown, c.list(c.named(n))...)
}

func firstNamed(nodes []*sitter.Node) *sitter.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (c *converter) withKeyword(n *ast.Node, kw string) *ast.Node {
	n.Keyword = kw
	return n
}

// loopModifierKind maps `x while c` to while and `begin ... end while c`,
// whose body runs before the first test, to while_post.
func loopModifierKind(typ string, body *ast.Node) ast.Kind {
	post := body.Is(ast.KindKwbegin)
	switch {
	case typ == "until_modifier" && post:
		return ast.KindUntilPost
	case typ == "until_modifier":
		return ast.KindUntil
	case post:
		return ast.KindWhilePost
	default:
		return ast.KindWhile
	}
}

func (c *converter) kwbegin(n *sitter.Node) *ast.Node {
	children := c.named(n)
	for _, ch := range children {
		switch ch.Type() {
		case "rescue", "ensure", "else":
			return c.mk(n, ast.KindKwbegin, c.compound(n, children))
		}
	}
	return c.mk(n, ast.KindKwbegin, c.list(children)...)
}

func (c *converter) def(n *sitter.Node) *ast.Node {
	name := ast.Symbol(c.text(n.ChildByFieldName("name")))

	restore := c.push(false)
	defer restore()

	args := c.params(n, n.ChildByFieldName("parameters"))
	return c.mk(n, ast.KindDef, name, args, c.definitionBody(n, "name"))
}

func (c *converter) defs(n *sitter.Node) *ast.Node {
	object := c.conv(n.ChildByFieldName("object"))
	name := ast.Symbol(c.text(n.ChildByFieldName("name")))

	restore := c.push(false)
	defer restore()

	args := c.params(n, n.ChildByFieldName("parameters"))
	return c.mk(n, ast.KindDefs, object, name, args, c.definitionBody(n, "object", "name"))
}

func (c *converter) class(n *sitter.Node) *ast.Node {
	name := c.conv(n.ChildByFieldName("name"))
	var super *ast.Node
	if s := n.ChildByFieldName("superclass"); s != nil {
		super = c.conv(firstNamed(c.named(s)))
	}

	restore := c.push(false)
	defer restore()
	return c.mk(n, ast.KindClass, name, super, c.definitionBody(n, "name"))
}

func (c *converter) module(n *sitter.Node) *ast.Node {
	name := c.conv(n.ChildByFieldName("name"))

	restore := c.push(false)
	defer restore()
	return c.mk(n, ast.KindModule, name, c.definitionBody(n, "name"))
}

func (c *converter) sclass(n *sitter.Node) *ast.Node {
	value := c.conv(n.ChildByFieldName("value"))

	restore := c.push(false)
	defer restore()
	return c.mk(n, ast.KindSclass, value, c.definitionBody(n, "value"))
}

// params converts a parameter list, declaring every name in the current
// scope. A missing list becomes an empty args node positioned at owner.
func (c *converter) params(owner, list *sitter.Node) *ast.Node {
	if list == nil {
		return c.mk(owner, ast.KindArgs)
	}
	var out []any
	for _, p := range c.named(list) {
		out = append(out, c.param(p))
	}
	return c.mk(list, ast.KindArgs, out...)
}

func (c *converter) param(p *sitter.Node) *ast.Node {
	declare := func(n *sitter.Node) []any {
		if n == nil {
			return nil
		}
		name := c.text(n)
		c.scope.declare(name)
		return []any{ast.Symbol(name)}
	}

	switch p.Type() {
	case "identifier":
		return c.mk(p, ast.KindArg, declare(p)...)
	case "optional_parameter":
		children := declare(p.ChildByFieldName("name"))
		return c.mk(p, ast.KindOptarg, append(children, c.conv(p.ChildByFieldName("value")))...)
	case "splat_parameter":
		return c.mk(p, ast.KindRestarg, declare(p.ChildByFieldName("name"))...)
	case "hash_splat_parameter":
		return c.mk(p, ast.KindKwrestarg, declare(p.ChildByFieldName("name"))...)
	case "block_parameter":
		return c.mk(p, ast.KindBlockarg, declare(p.ChildByFieldName("name"))...)
	case "keyword_parameter":
		children := declare(p.ChildByFieldName("name"))
		if v := p.ChildByFieldName("value"); v != nil {
			return c.mk(p, ast.KindKwoptarg, append(children, c.conv(v))...)
		}
		return c.mk(p, ast.KindKwarg, children...)
	case "destructured_parameter":
		var out []any
		for _, ch := range c.named(p) {
			out = append(out, c.param(ch))
		}
		return c.mk(p, ast.KindMlhs, out...)
	}
	return c.mk(p, ast.KindUnknown)
}

func (c *converter) arguments(n *sitter.Node) []any {
	if n == nil {
		return nil
	}
	if n.Type() != "argument_list" {
		return []any{c.conv(n)}
	}

	var out, pairs []any
	var pairAt *sitter.Node
	flush := func() {
		if len(pairs) > 0 {
			out = append(out, c.mk(pairAt, ast.KindHash, pairs...))
			pairs = nil
		}
	}
	for _, a := range c.named(n) {
		switch a.Type() {
		case "pair", "hash_splat_argument":
			if pairs == nil {
				pairAt = a
			}
			pairs = append(pairs, c.conv(a))
		default:
			flush()
			out = append(out, c.conv(a))
		}
	}
	flush()
	return out
}

func (c *converter) call(n *sitter.Node) *ast.Node {
	recvNode := n.ChildByFieldName("receiver")
	methNode := n.ChildByFieldName("method")
	blockNode := n.ChildByFieldName("block")
	args := c.arguments(n.ChildByFieldName("arguments"))

	var call *ast.Node
	if methNode != nil && methNode.Type() == "super" {
		call = c.mk(n, ast.KindSuper, args...)
	} else {
		kind := ast.KindSend
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "&." {
			kind = ast.KindCsend
		}
		var recv *ast.Node
		if recvNode != nil {
			recv = c.conv(recvNode)
		}
		name := "call"
		if methNode != nil {
			name = c.text(methNode)
		}
		call = c.mk(n, kind, append([]any{recv, ast.Symbol(name)}, args...)...)
	}

	if blockNode != nil {
		return c.withBlock(n, call, blockNode)
	}
	return call
}

// methodCall handles grammars that wrap a call and its arguments in an
// outer method_call node.
func (c *converter) methodCall(n *sitter.Node) *ast.Node {
	call := c.conv(n.ChildByFieldName("method"))
	if call == nil {
		return c.mk(n, ast.KindUnknown)
	}
	if call.Kind == ast.KindLvar {
		call = c.mk(n, ast.KindSend, (*ast.Node)(nil), call.Children[0])
	}
	if call.Is(ast.KindSend, ast.KindCsend, ast.KindSuper) {
		call.Children = append(call.Children, c.arguments(n.ChildByFieldName("arguments"))...)
		call.Loc = loc(n)
	}
	if b := n.ChildByFieldName("block"); b != nil {
		return c.withBlock(n, call, b)
	}
	return call
}

func (c *converter) withBlock(at *sitter.Node, call *ast.Node, blk *sitter.Node) *ast.Node {
	restore := c.push(true)
	defer restore()

	params := blk.ChildByFieldName("parameters")
	args := c.params(blk, params)
	body := c.definitionBody(blk)
	if params == nil && c.scope.numparams > 0 {
		return c.mk(at, ast.KindNumblock, call, int64(c.scope.numparams), body)
	}
	return c.mk(at, ast.KindBlock, call, args, body)
}

func (c *converter) lambda(n *sitter.Node) *ast.Node {
	restore := c.push(true)
	defer restore()

	params := n.ChildByFieldName("parameters")
	bodyNode := n.ChildByFieldName("body")
	if params == nil && bodyNode != nil {
		params = bodyNode.ChildByFieldName("parameters")
	}
	args := c.params(n, params)

	var body *ast.Node
	if bodyNode != nil {
		body = c.definitionBody(bodyNode)
	}
	return c.mk(n, ast.KindBlock, c.mk(n, ast.KindLambda), args, body)
}

func (c *converter) elementReference(n *sitter.Node) *ast.Node {
	objNode := n.ChildByFieldName("object")
	children := []any{c.conv(objNode), ast.Symbol("[]")}
	for _, ch := range c.named(n) {
		if objNode != nil && spanOf(ch) == spanOf(objNode) {
			continue
		}
		children = append(children, c.conv(ch))
	}
	return c.mk(n, ast.KindSend, children...)
}

func (c *converter) branch(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "elsif" {
		return c.ifNode(n, "elsif")
	}
	return c.conv(n)
}

func (c *converter) ifNode(n *sitter.Node, keyword string) *ast.Node {
	cond := c.conv(n.ChildByFieldName("condition"))
	then := c.branch(n.ChildByFieldName("consequence"))
	alt := n.ChildByFieldName("alternative")
	node := c.withKeyword(c.mk(n, ast.KindIf, cond, then, c.branch(alt)), keyword)
	node.ElseKeyword = alt != nil
	return node
}

// unlessNode stores its branches swapped, like `if !cond`.
func (c *converter) unlessNode(n *sitter.Node) *ast.Node {
	cond := c.conv(n.ChildByFieldName("condition"))
	then := c.branch(n.ChildByFieldName("consequence"))
	alt := n.ChildByFieldName("alternative")
	node := c.withKeyword(c.mk(n, ast.KindIf, cond, c.branch(alt), then), "unless")
	node.ElseKeyword = alt != nil
	return node
}

func (c *converter) forNode(n *sitter.Node) *ast.Node {
	value := n.ChildByFieldName("value")
	if value != nil && value.Type() == "in" {
		value = firstNamed(c.named(value))
	}
	iter := c.conv(value)
	target := c.target(n.ChildByFieldName("pattern"))
	return c.mk(n, ast.KindFor, target, iter, c.conv(n.ChildByFieldName("body")))
}

func (c *converter) caseNode(n *sitter.Node) *ast.Node {
	var subject *ast.Node
	valueNode := n.ChildByFieldName("value")
	if valueNode != nil {
		subject = c.conv(valueNode)
	}

	children := []any{subject}
	var elseBody *ast.Node
	for _, ch := range c.named(n) {
		if valueNode != nil && spanOf(ch) == spanOf(valueNode) {
			continue
		}
		switch ch.Type() {
		case "when":
			children = append(children, c.when(ch))
		case "else":
			elseBody = c.statements(ch, c.named(ch))
		}
	}
	return c.mk(n, ast.KindCase, append(children, elseBody)...)
}

func (c *converter) when(n *sitter.Node) *ast.Node {
	bodyNode := n.ChildByFieldName("body")
	var children []any
	for _, ch := range c.named(n) {
		if bodyNode != nil && spanOf(ch) == spanOf(bodyNode) {
			continue
		}
		if ch.Type() == "pattern" {
			children = append(children, c.conv(firstNamed(c.named(ch))))
			continue
		}
		children = append(children, c.conv(ch))
	}
	return c.mk(n, ast.KindWhen, append(children, c.conv(bodyNode))...)
}

func (c *converter) caseMatch(n *sitter.Node) *ast.Node {
	valueNode := n.ChildByFieldName("value")
	children := []any{c.conv(valueNode)}
	var elseBody *ast.Node
	for _, ch := range c.named(n) {
		switch ch.Type() {
		case "in_clause":
			children = append(children, c.inClause(ch))
		case "else":
			elseBody = c.statements(ch, c.named(ch))
		}
	}
	return c.mk(n, ast.KindCaseMatch, append(children, elseBody)...)
}

func (c *converter) inClause(n *sitter.Node) *ast.Node {
	pat := c.pattern(n.ChildByFieldName("pattern"))
	var guard *ast.Node
	if g := n.ChildByFieldName("guard"); g != nil {
		cond := g.ChildByFieldName("condition")
		if cond == nil {
			cond = firstNamed(c.named(g))
		}
		guard = c.mk(g, ast.KindUnknown, c.conv(cond))
	}
	return c.mk(n, ast.KindInPattern, pat, guard, c.conv(n.ChildByFieldName("body")))
}

// pattern converts a pattern-matching pattern. Bare identifiers bind locals.
func (c *converter) pattern(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "identifier" {
		return c.target(n)
	}
	if patternTypes[n.Type()] {
		var children []any
		for _, ch := range c.named(n) {
			children = append(children, c.pattern(ch))
		}
		return c.mk(n, ast.KindUnknown, children...)
	}
	return c.conv(n)
}

func (c *converter) binary(n *sitter.Node) *ast.Node {
	left := c.conv(n.ChildByFieldName("left"))
	right := c.conv(n.ChildByFieldName("right"))
	op := c.text(n.ChildByFieldName("operator"))
	switch op {
	case "and", "&&":
		return c.mk(n, ast.KindAnd, left, right)
	case "or", "||":
		return c.mk(n, ast.KindOr, left, right)
	}
	return c.mk(n, ast.KindSend, left, ast.Symbol(op), right)
}

func (c *converter) unary(n *sitter.Node) *ast.Node {
	operand := c.conv(n.ChildByFieldName("operand"))
	switch op := c.text(n.ChildByFieldName("operator")); op {
	case "not", "!":
		return c.mk(n, ast.KindSend, operand, ast.Symbol("!"))
	case "defined?":
		return c.mk(n, ast.KindUnknown, operand)
	case "-", "+":
		return c.mk(n, ast.KindSend, operand, ast.Symbol(op+"@"))
	default:
		return c.mk(n, ast.KindSend, operand, ast.Symbol(op))
	}
}

func (c *converter) identifier(n *sitter.Node) *ast.Node {
	name := c.text(n)
	if len(name) == 2 && name[0] == '_' && name[1] >= '1' && name[1] <= '9' {
		if num := int(name[1] - '0'); num > c.scope.numparams {
			c.scope.numparams = num
		}
		return c.mk(n, ast.KindLvar, ast.Symbol(name))
	}
	if c.scope.has(name) {
		return c.mk(n, ast.KindLvar, ast.Symbol(name))
	}
	return c.mk(n, ast.KindSend, (*ast.Node)(nil), ast.Symbol(name))
}

// target converts an assignment target without its value. Local variable
// targets are declared before the right-hand side is converted.
func (c *converter) target(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		name := c.text(n)
		c.scope.declare(name)
		return c.mk(n, ast.KindLvasgn, ast.Symbol(name))
	case "instance_variable":
		return c.mk(n, ast.KindIvasgn, ast.Symbol(c.text(n)))
	case "global_variable":
		return c.mk(n, ast.KindGvasgn, ast.Symbol(c.text(n)))
	case "class_variable":
		return c.mk(n, ast.KindCvasgn, ast.Symbol(c.text(n)))
	case "constant":
		return c.mk(n, ast.KindCasgn, (*ast.Node)(nil), ast.Symbol(c.text(n)))
	case "scope_resolution":
		var scopeNode *ast.Node
		if s := n.ChildByFieldName("scope"); s != nil {
			scopeNode = c.conv(s)
		} else {
			scopeNode = c.mk(n, ast.KindCbase)
		}
		return c.mk(n, ast.KindCasgn, scopeNode, ast.Symbol(c.text(n.ChildByFieldName("name"))))
	case "call":
		kind := ast.KindSend
		if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "&." {
			kind = ast.KindCsend
		}
		recv := c.conv(n.ChildByFieldName("receiver"))
		return c.mk(n, kind, recv, ast.Symbol(c.text(n.ChildByFieldName("method"))+"="))
	case "element_reference":
		ref := c.elementReference(n)
		ref.Children[1] = ast.Symbol("[]=")
		return ref
	case "left_assignment_list", "destructured_left_assignment":
		var out []any
		for _, ch := range c.named(n) {
			out = append(out, c.target(ch))
		}
		return c.mk(n, ast.KindMlhs, out...)
	case "rest_assignment":
		return c.mk(n, ast.KindSplat, c.target(firstNamed(c.named(n))))
	}
	return c.conv(n)
}

func (c *converter) assignment(n *sitter.Node) *ast.Node {
	lhs := c.target(n.ChildByFieldName("left"))
	rightNode := n.ChildByFieldName("right")

	var rhs *ast.Node
	if rightNode != nil && rightNode.Type() == "right_assignment_list" {
		rhs = c.mk(rightNode, ast.KindArray, c.list(c.named(rightNode))...)
	} else {
		rhs = c.conv(rightNode)
	}

	if lhs == nil {
		return c.mk(n, ast.KindUnknown, rhs)
	}
	if lhs.Kind == ast.KindMlhs {
		return c.mk(n, ast.KindMasgn, lhs, rhs)
	}
	lhs.Children = append(lhs.Children, rhs)
	lhs.Loc = loc(n)
	return lhs
}

func (c *converter) operatorAssignment(n *sitter.Node) *ast.Node {
	lhs := c.target(n.ChildByFieldName("left"))
	rhs := c.conv(n.ChildByFieldName("right"))
	switch op := c.text(n.ChildByFieldName("operator")); op {
	case "||=":
		return c.mk(n, ast.KindOrAsgn, lhs, rhs)
	case "&&=":
		return c.mk(n, ast.KindAndAsgn, lhs, rhs)
	default:
		return c.mk(n, ast.KindOpAsgn, lhs, ast.Symbol(strings.TrimSuffix(op, "=")), rhs)
	}
}

func (c *converter) pair(n *sitter.Node) *ast.Node {
	keyNode := n.ChildByFieldName("key")
	key := c.conv(keyNode)
	valueNode := n.ChildByFieldName("value")
	var value *ast.Node
	if valueNode != nil {
		value = c.conv(valueNode)
	} else if keyNode != nil {
		// {name:} shorthand reads the local or method of the same name
		name := strings.TrimSuffix(c.text(keyNode), ":")
		if c.scope.has(name) {
			value = c.mk(keyNode, ast.KindLvar, ast.Symbol(name))
		} else {
			value = c.mk(keyNode, ast.KindSend, (*ast.Node)(nil), ast.Symbol(name))
		}
	}
	return c.mk(n, ast.KindPair, key, value)
}

// parts converts the pieces of a string-like literal: plain content
// becomes str, interpolations become begin.
func (c *converter) parts(n *sitter.Node) []any {
	var out []any
	for _, ch := range c.named(n) {
		if ch.Type() == "interpolation" {
			out = append(out, c.mk(ch, ast.KindBegin, c.list(c.named(ch))...))
			continue
		}
		out = append(out, c.mk(ch, ast.KindStr, c.text(ch)))
	}
	return out
}

func (c *converter) interpolated(n *sitter.Node) bool {
	for _, ch := range c.named(n) {
		if ch.Type() == "interpolation" {
			return true
		}
	}
	return false
}

func (c *converter) literal(n *sitter.Node) string {
	var b strings.Builder
	for _, ch := range c.named(n) {
		b.WriteString(c.text(ch))
	}
	return b.String()
}

func (c *converter) str(n *sitter.Node, dynamic ast.Kind) *ast.Node {
	if c.interpolated(n) {
		return c.mk(n, dynamic, c.parts(n)...)
	}
	if n.Type() == "bare_string" && n.NamedChildCount() == 0 {
		return c.mk(n, ast.KindStr, c.text(n))
	}
	if dynamic == ast.KindXstr {
		return c.mk(n, ast.KindXstr, c.mk(n, ast.KindStr, c.literal(n)))
	}
	return c.mk(n, ast.KindStr, c.literal(n))
}

func (c *converter) symbol(n *sitter.Node) *ast.Node {
	if c.interpolated(n) {
		return c.mk(n, ast.KindDsym, c.parts(n)...)
	}
	if n.NamedChildCount() == 0 {
		return c.mk(n, ast.KindSym, ast.Symbol(strings.TrimPrefix(c.text(n), ":")))
	}
	return c.mk(n, ast.KindSym, ast.Symbol(c.literal(n)))
}

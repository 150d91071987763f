package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"cxlint/internal/ast"
)

// DefineMethod recognizes a dynamic method definition written as a block:
//
//	define_method(:name) { ... }
//
// and captures the symbol or string naming the method.
var DefineMethod = MustCompile(`(block (send nil? :define_method ({sym str} $_)) args _)`)

// SyntaxError describes a malformed pattern source.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern syntax error at offset %d: %s", e.Offset, e.Message)
}

// Compile parses the s-expression pattern notation:
//
//	(kind p...)   node of kind with children matching p..., in order
//	({k1 k2} p...) node of either kind
//	kind          node of kind with any children
//	{p1 p2}       alternative
//	$p            capture
//	_             any single value
//	...           any sequence of children
//	nil?          absent child
//	:sym "str" 42 literal values
func Compile(src string) (Pattern, error) {
	c := &compiler{src: src}
	p, err := c.parse()
	if err != nil {
		return nil, err
	}
	c.skipSpace()
	if c.pos < len(c.src) {
		return nil, c.errorf("unexpected trailing input %q", c.src[c.pos:])
	}
	return p, nil
}

// MustCompile is Compile that panics on error. Intended for package-level patterns.
func MustCompile(src string) Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

type compiler struct {
	src string
	pos int
}

func (c *compiler) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: c.pos, Message: fmt.Sprintf(format, args...)}
}

func (c *compiler) skipSpace() {
	for c.pos < len(c.src) && unicode.IsSpace(rune(c.src[c.pos])) {
		c.pos++
	}
}

func (c *compiler) peek() byte {
	if c.pos >= len(c.src) {
		return 0
	}
	return c.src[c.pos]
}

func (c *compiler) parse() (Pattern, error) {
	c.skipSpace()
	if c.pos >= len(c.src) {
		return nil, c.errorf("unexpected end of pattern")
	}

	switch ch := c.peek(); ch {
	case '(':
		return c.parseNode()
	case '{':
		c.pos++
		options, err := c.parseList('}')
		if err != nil {
			return nil, err
		}
		if len(options) == 0 {
			return nil, c.errorf("empty alternative")
		}
		return Alt(options...), nil
	case '$':
		c.pos++
		inner, err := c.parse()
		if err != nil {
			return nil, err
		}
		return Capture(inner), nil
	case ':':
		c.pos++
		name := c.word()
		if name == "" {
			return nil, c.errorf("empty symbol")
		}
		return Sym(name), nil
	case '"':
		return c.parseString()
	case ')', '}':
		return nil, c.errorf("unexpected %q", ch)
	}

	word := c.word()
	switch {
	case word == "":
		return nil, c.errorf("unexpected %q", c.peek())
	case word == "_":
		return Any(), nil
	case word == "...":
		return Rest(), nil
	case word == "nil?":
		return Nil(), nil
	case isNumber(word):
		i, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			return nil, c.errorf("bad integer %q", word)
		}
		return Int(i), nil
	}

	kind, ok := ast.ParseKind(word)
	if !ok {
		return nil, c.errorf("unknown node kind %q", word)
	}
	return Kind(kind), nil
}

func (c *compiler) parseNode() (Pattern, error) {
	c.pos++ // (
	c.skipSpace()

	var kinds []ast.Kind
	if c.peek() == '{' {
		c.pos++
		heads, err := c.parseList('}')
		if err != nil {
			return nil, err
		}
		for _, h := range heads {
			np, ok := h.(nodePattern)
			if !ok || np.children != nil {
				return nil, c.errorf("node head alternatives must be kind names")
			}
			kinds = append(kinds, np.kinds...)
		}
	} else {
		word := c.word()
		kind, ok := ast.ParseKind(word)
		if !ok {
			return nil, c.errorf("unknown node kind %q", word)
		}
		kinds = []ast.Kind{kind}
	}
	if len(kinds) == 0 {
		return nil, c.errorf("missing node kind")
	}

	children, err := c.parseList(')')
	if err != nil {
		return nil, err
	}
	return NodeOf(kinds, children...), nil
}

func (c *compiler) parseList(end byte) ([]Pattern, error) {
	var out []Pattern
	for {
		c.skipSpace()
		if c.pos >= len(c.src) {
			return nil, c.errorf("missing %q", end)
		}
		if c.peek() == end {
			c.pos++
			return out, nil
		}
		p, err := c.parse()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

func (c *compiler) parseString() (Pattern, error) {
	start := c.pos
	c.pos++ // opening quote
	for c.pos < len(c.src) {
		switch c.src[c.pos] {
		case '\\':
			c.pos += 2
			continue
		case '"':
			c.pos++
			s, err := strconv.Unquote(c.src[start:c.pos])
			if err != nil {
				return nil, &SyntaxError{Offset: start, Message: "bad string literal"}
			}
			return Str(s), nil
		}
		c.pos++
	}
	return nil, &SyntaxError{Offset: start, Message: "unterminated string"}
}

func (c *compiler) word() string {
	start := c.pos
	for c.pos < len(c.src) {
		ch := c.src[c.pos]
		if unicode.IsSpace(rune(ch)) || strings.IndexByte("(){}$", ch) >= 0 {
			break
		}
		c.pos++
	}
	return c.src[start:c.pos]
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

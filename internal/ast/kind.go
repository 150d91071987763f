package ast

// Kind identifies the syntactic construct a Node represents.
// Names follow the parser gem so weight tables and patterns read the same way
// Ruby tooling writes them.
type Kind uint8

const (
	KindUnknown Kind = iota

	// Scopes and definitions
	KindBegin
	KindKwbegin
	KindDef
	KindDefs
	KindClass
	KindModule
	KindSclass
	KindArgs
	KindArg
	KindOptarg
	KindRestarg
	KindKwarg
	KindKwoptarg
	KindKwrestarg
	KindBlockarg
	KindBlock
	KindNumblock
	KindBlockPass
	KindLambda

	// Sends
	KindSend
	KindCsend
	KindSuper
	KindZsuper
	KindYield

	// Variables and assignment
	KindLvar
	KindIvar
	KindGvar
	KindCvar
	KindConst
	KindCbase
	KindLvasgn
	KindIvasgn
	KindGvasgn
	KindCvasgn
	KindCasgn
	KindMasgn
	KindMlhs
	KindOpAsgn
	KindOrAsgn
	KindAndAsgn

	// Control flow
	KindIf
	KindCase
	KindWhen
	KindCaseMatch
	KindInPattern
	KindWhile
	KindUntil
	KindWhilePost
	KindUntilPost
	KindFor
	KindBreak
	KindNext
	KindRedo
	KindRetry
	KindReturn
	KindRescue
	KindResbody
	KindEnsure
	KindAnd
	KindOr
	KindNot

	// Literals
	KindSym
	KindDsym
	KindStr
	KindDstr
	KindXstr
	KindInt
	KindFloat
	KindRegexp
	KindArray
	KindHash
	KindPair
	KindSplat
	KindKwsplat
	KindIrange
	KindErange
	KindNil
	KindTrue
	KindFalse
	KindSelf

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:   "unknown",
	KindBegin:     "begin",
	KindKwbegin:   "kwbegin",
	KindDef:       "def",
	KindDefs:      "defs",
	KindClass:     "class",
	KindModule:    "module",
	KindSclass:    "sclass",
	KindArgs:      "args",
	KindArg:       "arg",
	KindOptarg:    "optarg",
	KindRestarg:   "restarg",
	KindKwarg:     "kwarg",
	KindKwoptarg:  "kwoptarg",
	KindKwrestarg: "kwrestarg",
	KindBlockarg:  "blockarg",
	KindBlock:     "block",
	KindNumblock:  "numblock",
	KindBlockPass: "block_pass",
	KindLambda:    "lambda",
	KindSend:      "send",
	KindCsend:     "csend",
	KindSuper:     "super",
	KindZsuper:    "zsuper",
	KindYield:     "yield",
	KindLvar:      "lvar",
	KindIvar:      "ivar",
	KindGvar:      "gvar",
	KindCvar:      "cvar",
	KindConst:     "const",
	KindCbase:     "cbase",
	KindLvasgn:    "lvasgn",
	KindIvasgn:    "ivasgn",
	KindGvasgn:    "gvasgn",
	KindCvasgn:    "cvasgn",
	KindCasgn:     "casgn",
	KindMasgn:     "masgn",
	KindMlhs:      "mlhs",
	KindOpAsgn:    "op_asgn",
	KindOrAsgn:    "or_asgn",
	KindAndAsgn:   "and_asgn",
	KindIf:        "if",
	KindCase:      "case",
	KindWhen:      "when",
	KindCaseMatch: "case_match",
	KindInPattern: "in_pattern",
	KindWhile:     "while",
	KindUntil:     "until",
	KindWhilePost: "while_post",
	KindUntilPost: "until_post",
	KindFor:       "for",
	KindBreak:     "break",
	KindNext:      "next",
	KindRedo:      "redo",
	KindRetry:     "retry",
	KindReturn:    "return",
	KindRescue:    "rescue",
	KindResbody:   "resbody",
	KindEnsure:    "ensure",
	KindAnd:       "and",
	KindOr:        "or",
	KindNot:       "not",
	KindSym:       "sym",
	KindDsym:      "dsym",
	KindStr:       "str",
	KindDstr:      "dstr",
	KindXstr:      "xstr",
	KindInt:       "int",
	KindFloat:     "float",
	KindRegexp:    "regexp",
	KindArray:     "array",
	KindHash:      "hash",
	KindPair:      "pair",
	KindSplat:     "splat",
	KindKwsplat:   "kwsplat",
	KindIrange:    "irange",
	KindErange:    "erange",
	KindNil:       "nil",
	KindTrue:      "true",
	KindFalse:     "false",
	KindSelf:      "self",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

// String returns the parser-gem name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind returns the Kind for a parser-gem node name.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds returns every known kind except KindUnknown, in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// IsAssignment reports whether k writes a variable or constant.
func (k Kind) IsAssignment() bool {
	switch k {
	case KindLvasgn, KindIvasgn, KindGvasgn, KindCvasgn, KindCasgn,
		KindMasgn, KindOpAsgn, KindOrAsgn, KindAndAsgn:
		return true
	default:
		return false
	}
}

// IsDefinition reports whether k introduces a method.
func (k Kind) IsDefinition() bool {
	return k == KindDef || k == KindDefs
}

// KindSet is a membership set of kinds.
type KindSet [kindCount]bool

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s.Add(k)
	}
	return s
}

// Add inserts k into the set. Out-of-range kinds are ignored.
func (s *KindSet) Add(k Kind) {
	if k < kindCount {
		s[k] = true
	}
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return k < kindCount && s[k]
}

package expression

// limits of a single evaluation
const (
	MaxTokens      = 320
	MaxTokenLength = 31
)

type TokenType int

const (
	TokenTypeNoType TokenType = iota // whitespace, never emitted
	TokenTypeNumber
	TokenTypeRegister
	TokenTypeIdentifier
	TokenTypeLeftParen
	TokenTypeRightParen
	TokenTypeAdd
	TokenTypeSub
	TokenTypeMul
	TokenTypeDiv
	TokenTypeAnd
	TokenTypeOr
	TokenTypeEqual
	TokenTypeNotEqual
	TokenTypeLess
	TokenTypeLessEqual
	TokenTypeGreater
	TokenTypeGreaterEqual
	TokenTypeNegate
	TokenTypeIdentity
	TokenTypeDereference
)

var tokenTypeNames = map[TokenType]string{
	TokenTypeNoType:       "notype",
	TokenTypeNumber:       "number",
	TokenTypeRegister:     "register",
	TokenTypeIdentifier:   "identifier",
	TokenTypeLeftParen:    "(",
	TokenTypeRightParen:   ")",
	TokenTypeAdd:          "+",
	TokenTypeSub:          "-",
	TokenTypeMul:          "*",
	TokenTypeDiv:          "/",
	TokenTypeAnd:          "&&",
	TokenTypeOr:           "||",
	TokenTypeEqual:        "==",
	TokenTypeNotEqual:     "!=",
	TokenTypeLess:         "<",
	TokenTypeLessEqual:    "<=",
	TokenTypeGreater:      ">",
	TokenTypeGreaterEqual: ">=",
	TokenTypeNegate:       "neg",
	TokenTypeIdentity:     "pos",
	TokenTypeDereference:  "deref",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// IsOperand reports whether the token type is a leaf (literal, register or identifier).
func (t TokenType) IsOperand() bool {
	return t == TokenTypeNumber || t == TokenTypeRegister || t == TokenTypeIdentifier
}

// IsUnary reports whether the token type is one of the prefix operators produced by reclassification.
func (t TokenType) IsUnary() bool {
	return t == TokenTypeNegate || t == TokenTypeIdentity || t == TokenTypeDereference
}

type Token struct {
	Type TokenType `json:"type"`
	Text string    `json:"text,omitempty"` // only kept for numbers, registers and identifiers
}

func (t Token) String() string {
	if t.Text != "" {
		return t.Type.String() + "(" + t.Text + ")"
	}
	return t.Type.String()
}

// LexPolicy selects how competing rules are resolved at a scan position.
type LexPolicy int

const (
	LexLongestMatch LexPolicy = iota
	LexFirstMatch             // rule order decides, so "<" shadows "<=" and ">" shadows ">="
)

// ComparisonMapping selects the meaning of the four relational operators.
type ComparisonMapping int

const (
	CompareConventional ComparisonMapping = iota
	CompareLegacy                         // "<" computes <= and "<=" computes <
)

func (c ComparisonMapping) String() string {
	if c == CompareLegacy {
		return "legacy"
	}
	return "conventional"
}

type Options struct {
	Lexing      LexPolicy
	Comparisons ComparisonMapping
}

// RegisterFile resolves a register name given without its sigil.
type RegisterFile interface {
	LookupRegister(name string) (uint64, bool)
}

// Memory reads width bytes at addr from the simulated address space.
type Memory interface {
	ReadMemory(addr uint64, width int) (uint64, bool)
}

type Machine interface {
	RegisterFile
	Memory
}

package expression

import (
	"log"
	"regexp"
	"sync"
)

type rule struct {
	pattern   string
	tokenType TokenType
}

// Order matters: under LexFirstMatch the first rule matching at the scan position wins.
var rules = []rule{
	{`\s+`, TokenTypeNoType},
	{`\+`, TokenTypeAdd},
	{`==`, TokenTypeEqual},
	{`-`, TokenTypeSub},
	{`\(`, TokenTypeLeftParen},
	{`\)`, TokenTypeRightParen},
	{`\*`, TokenTypeMul},
	{`/`, TokenTypeDiv},
	{`<`, TokenTypeLess},
	{`<=`, TokenTypeLessEqual},
	{`>`, TokenTypeGreater},
	{`>=`, TokenTypeGreaterEqual},
	{`!=`, TokenTypeNotEqual},
	{`&&`, TokenTypeAnd},
	{`\|\|`, TokenTypeOr},

	{`0x[0-9a-fA-F]+|[0-9]+`, TokenTypeNumber},
	{`\$\w+`, TokenTypeRegister},
	{`[A-Za-z_]\w*`, TokenTypeIdentifier},
}

var (
	compiledRules []*regexp.Regexp
	compileOnce   sync.Once
)

// Initialize compiles the rule table once per process. Every entry point calls it.
func Initialize() {
	compileOnce.Do(func() {
		compiled := make([]*regexp.Regexp, len(rules))
		for i, r := range rules {
			re, err := regexp.Compile(`^(?:` + r.pattern + `)`)
			if err != nil {
				log.Fatalf("regex compilation failed: %v\n%s", err, r.pattern)
			}
			compiled[i] = re
		}
		compiledRules = compiled
	})
}

// boundTypes are the token types after which "+", "-" and "*" stay binary.
var boundTypes = map[TokenType]bool{
	TokenTypeRightParen: true,
	TokenTypeNumber:     true,
	TokenTypeRegister:   true,
}

var unaryCounterpart = map[TokenType]TokenType{
	TokenTypeAdd: TokenTypeIdentity,
	TokenTypeSub: TokenTypeNegate,
	TokenTypeMul: TokenTypeDereference,
}

// bindingStrength orders operators from weakest (evaluated last) to strongest.
var bindingStrength = map[TokenType]int{
	TokenTypeOr:           1,
	TokenTypeAnd:          2,
	TokenTypeEqual:        3,
	TokenTypeNotEqual:     3,
	TokenTypeLess:         4,
	TokenTypeLessEqual:    4,
	TokenTypeGreater:      4,
	TokenTypeGreaterEqual: 4,
	TokenTypeAdd:          5,
	TokenTypeSub:          5,
	TokenTypeMul:          6,
	TokenTypeDiv:          6,
	TokenTypeNegate:       7,
	TokenTypeIdentity:     7,
	TokenTypeDereference:  7,
}

package expression

import (
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
)

func tokenize(str string, policy LexPolicy) ([]Token, error) {
	Initialize()

	tokens := make([]Token, 0, 16)
	position := 0
	for position < len(str) {
		ruleIndex, length := matchRule(str[position:], policy)
		if ruleIndex < 0 {
			return nil, EvaluationErrors.NoMatch(str, position)
		}

		start := position
		matched := str[start : start+length]
		position += length
		util.LogF("match rules[%d] = %q at position %d with len %d: %s", ruleIndex, rules[ruleIndex].pattern, start, length, matched)

		tokenType := rules[ruleIndex].tokenType
		if tokenType == TokenTypeNoType {
			continue
		}
		if len(tokens) == MaxTokens {
			return nil, EvaluationErrors.TooManyTokens(str, start)
		}

		token := Token{Type: tokenType}
		switch tokenType {
		case TokenTypeNumber, TokenTypeRegister, TokenTypeIdentifier:
			if length > MaxTokenLength {
				return nil, EvaluationErrors.TokenTooLong(str, start)
			}
			token.Text = matched
		case TokenTypeAdd, TokenTypeSub, TokenTypeMul:
			// only the previous token decides, there is no lookahead
			if len(tokens) == 0 || !boundTypes[tokens[len(tokens)-1].Type] {
				token.Type = unaryCounterpart[tokenType]
			}
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// matchRule returns the index of the winning rule at the start of rest and its match length,
// or -1 when no rule matches.
func matchRule(rest string, policy LexPolicy) (int, int) {
	best, bestLength := -1, 0
	for i, re := range compiledRules {
		loc := re.FindStringIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		if policy == LexFirstMatch {
			return i, loc[1]
		}
		if loc[1] > bestLength {
			best, bestLength = i, loc[1]
		}
	}
	return best, bestLength
}

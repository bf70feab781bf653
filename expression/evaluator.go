package expression

import (
	"strconv"
	"strings"
)

// evaluation holds the tokens of one Evaluate call. Spans are (p, q) index pairs into tokens,
// both ends inclusive.
type evaluation struct {
	tokens  []Token
	machine Machine
	options Options
}

func (e *evaluation) encloses(p, q int) bool {
	if e.tokens[p].Type != TokenTypeLeftParen || e.tokens[q].Type != TokenTypeRightParen {
		return false
	}

	depth := 0
	for i := p; i <= q; i++ {
		switch e.tokens[i].Type {
		case TokenTypeLeftParen:
			depth++
		case TokenTypeRightParen:
			depth--
		}
		if depth == 0 {
			return i == q
		}
	}
	return false
}

// locateSplit finds the operator evaluated last in [p, q].
func (e *evaluation) locateSplit(p, q int) (int, error) {
	split, best, depth := -1, 0, 0
	for i := p; i <= q; i++ {
		tokenType := e.tokens[i].Type
		switch {
		case tokenType == TokenTypeLeftParen:
			depth++
			continue
		case tokenType == TokenTypeRightParen:
			if depth == 0 {
				return -1, EvaluationErrors.UnbalancedParentheses()
			}
			depth--
			continue
		case tokenType.IsOperand(), depth > 0:
			continue
		}

		strength, ok := bindingStrength[tokenType]
		if !ok {
			return -1, EvaluationErrors.UnsupportedOperator(tokenType, false)
		}
		// weaker always wins; on a tie binary operators take the rightmost, unary the leftmost
		if split < 0 || strength < best || (strength == best && !tokenType.IsUnary()) {
			split, best = i, strength
		}
	}

	if depth != 0 {
		return -1, EvaluationErrors.UnbalancedParentheses()
	}
	if split < 0 {
		return -1, EvaluationErrors.NoOperator()
	}
	return split, nil
}

func (e *evaluation) eval(p, q int) (uint64, error) {
	if p > q {
		return 0, EvaluationErrors.EmptySpan()
	}
	if p == q {
		return e.leaf(e.tokens[p])
	}
	if e.encloses(p, q) {
		return e.eval(p+1, q-1)
	}

	split, err := e.locateSplit(p, q)
	if err != nil {
		return 0, err
	}

	right, err := e.eval(split+1, q)
	if err != nil {
		return 0, err
	}

	operator := e.tokens[split].Type
	left, err := e.eval(p, split-1)
	if err != nil {
		// nothing usable on the left, so the operator is applied as a prefix.
		// Binary-only operators fail either way; keep the left error since it says more.
		if !operator.IsUnary() {
			return 0, err
		}
		return e.unary(operator, right)
	}
	return e.binary(operator, left, right)
}

func (e *evaluation) leaf(token Token) (uint64, error) {
	switch token.Type {
	case TokenTypeNumber:
		var value uint64
		var err error
		if strings.HasPrefix(token.Text, "0x") {
			value, err = strconv.ParseUint(token.Text[2:], 16, 64)
		} else {
			value, err = strconv.ParseUint(token.Text, 10, 64)
		}
		if err != nil {
			return 0, EvaluationErrors.InvalidNumberLiteral(token.Text)
		}
		return value, nil
	case TokenTypeRegister:
		name := strings.TrimPrefix(token.Text, "$")
		if e.machine == nil {
			return 0, EvaluationErrors.UnknownRegister(name)
		}
		value, ok := e.machine.LookupRegister(name)
		if !ok {
			return 0, EvaluationErrors.UnknownRegister(name)
		}
		return value, nil
	default:
		return 0, EvaluationErrors.UnboundLeaf(token)
	}
}

func (e *evaluation) unary(operator TokenType, value uint64) (uint64, error) {
	switch operator {
	case TokenTypeIdentity:
		return value, nil
	case TokenTypeNegate:
		return -value, nil
	case TokenTypeDereference:
		if e.machine == nil {
			return 0, EvaluationErrors.MemoryAccess(value)
		}
		result, ok := e.machine.ReadMemory(value, 8)
		if !ok {
			return 0, EvaluationErrors.MemoryAccess(value)
		}
		return result, nil
	default:
		return 0, EvaluationErrors.UnsupportedOperator(operator, true)
	}
}

func (e *evaluation) binary(operator TokenType, left, right uint64) (uint64, error) {
	switch operator {
	case TokenTypeAdd:
		return left + right, nil
	case TokenTypeSub:
		return left - right, nil
	case TokenTypeMul:
		return left * right, nil
	case TokenTypeDiv:
		if right == 0 {
			return 0, EvaluationErrors.DivisionByZero()
		}
		return uint64(int64(left) / int64(right)), nil
	case TokenTypeAnd:
		return boolToWord(left != 0 && right != 0), nil
	case TokenTypeOr:
		return boolToWord(left != 0 || right != 0), nil
	case TokenTypeEqual:
		return boolToWord(left == right), nil
	case TokenTypeNotEqual:
		return boolToWord(left != right), nil
	case TokenTypeLess:
		if e.options.Comparisons == CompareLegacy {
			return boolToWord(left <= right), nil
		}
		return boolToWord(left < right), nil
	case TokenTypeLessEqual:
		if e.options.Comparisons == CompareLegacy {
			return boolToWord(left < right), nil
		}
		return boolToWord(left <= right), nil
	case TokenTypeGreater:
		return boolToWord(left > right), nil
	case TokenTypeGreaterEqual:
		return boolToWord(left >= right), nil
	default:
		return 0, EvaluationErrors.UnsupportedOperator(operator, false)
	}
}

func boolToWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

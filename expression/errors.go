package expression

import (
	"fmt"
	"strings"
)

type LexicalError struct {
	Position   int
	Expression string
	reason     string
}

func (e *LexicalError) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("%s at position %d", e.reason, e.Position)
	}
	return fmt.Sprintf("no match at position %d", e.Position)
}

// Caret renders the expression with a marker under the failing position.
func (e *LexicalError) Caret() string {
	return e.Expression + "\n" + strings.Repeat(" ", e.Position) + "^"
}

type StructureError struct {
	reason string
}

func (e *StructureError) Error() string {
	return "Invalid expression structure: " + e.reason
}

type UnknownRegisterError struct {
	name string
}

func (e *UnknownRegisterError) Error() string {
	return "Unknown register: $" + e.name
}

type DivisionByZeroError struct{}

func (e *DivisionByZeroError) Error() string {
	return "Division by zero"
}

type UnboundLeafError struct {
	token Token
}

func (e *UnboundLeafError) Error() string {
	if e.token.Type == TokenTypeIdentifier {
		return "No value bound to identifier: " + e.token.Text
	}
	return "Cannot evaluate " + e.token.String() + " on its own"
}

type InvalidNumberLiteralError struct {
	literal string
}

func (e *InvalidNumberLiteralError) Error() string {
	return "Invalid number literal: " + e.literal
}

type UnsupportedOperatorError struct {
	operator TokenType
	unary    bool
}

func (e *UnsupportedOperatorError) Error() string {
	if e.unary {
		return "Operator " + e.operator.String() + " cannot be used as a unary operator"
	}
	return "Operator " + e.operator.String() + " cannot be used as a binary operator"
}

type MemoryAccessError struct {
	address uint64
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("Could not read address 0x%x", e.address)
}

type evaluationErrors struct{}

var EvaluationErrors evaluationErrors

func (evaluationErrors) NoMatch(expression string, position int) *LexicalError {
	return &LexicalError{Position: position, Expression: expression}
}

func (evaluationErrors) TokenTooLong(expression string, position int) *LexicalError {
	return &LexicalError{Position: position, Expression: expression, reason: "token too long"}
}

func (evaluationErrors) TooManyTokens(expression string, position int) *LexicalError {
	return &LexicalError{Position: position, Expression: expression, reason: "too many tokens"}
}

func (evaluationErrors) EmptySpan() *StructureError {
	return &StructureError{reason: "missing operand"}
}

func (evaluationErrors) UnbalancedParentheses() *StructureError {
	return &StructureError{reason: "unbalanced parentheses"}
}

func (evaluationErrors) NoOperator() *StructureError {
	return &StructureError{reason: "no operator between operands"}
}

func (evaluationErrors) UnknownRegister(name string) *UnknownRegisterError {
	return &UnknownRegisterError{name: name}
}

func (evaluationErrors) DivisionByZero() *DivisionByZeroError {
	return &DivisionByZeroError{}
}

func (evaluationErrors) UnboundLeaf(token Token) *UnboundLeafError {
	return &UnboundLeafError{token: token}
}

func (evaluationErrors) InvalidNumberLiteral(literal string) *InvalidNumberLiteralError {
	return &InvalidNumberLiteralError{literal: literal}
}

func (evaluationErrors) UnsupportedOperator(operator TokenType, unary bool) *UnsupportedOperatorError {
	return &UnsupportedOperatorError{operator: operator, unary: unary}
}

func (evaluationErrors) MemoryAccess(address uint64) *MemoryAccessError {
	return &MemoryAccessError{address: address}
}

func (evaluationErrors) IsLexicalError(err error) bool {
	_, ok := err.(*LexicalError)
	return ok
}

func (evaluationErrors) IsStructureError(err error) bool {
	_, ok := err.(*StructureError)
	return ok
}

func (evaluationErrors) IsUnknownRegisterError(err error) bool {
	_, ok := err.(*UnknownRegisterError)
	return ok
}

func (evaluationErrors) IsDivisionByZeroError(err error) bool {
	_, ok := err.(*DivisionByZeroError)
	return ok
}

func (evaluationErrors) IsUnboundLeafError(err error) bool {
	_, ok := err.(*UnboundLeafError)
	return ok
}

func (evaluationErrors) IsInvalidNumberLiteralError(err error) bool {
	_, ok := err.(*InvalidNumberLiteralError)
	return ok
}

func (evaluationErrors) IsUnsupportedOperatorError(err error) bool {
	_, ok := err.(*UnsupportedOperatorError)
	return ok
}

func (evaluationErrors) IsMemoryAccessError(err error) bool {
	_, ok := err.(*MemoryAccessError)
	return ok
}

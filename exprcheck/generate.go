// Package exprcheck generates random arithmetic expressions with known values and checks an
// evaluator against them, writing a Gradescope style JSON report.
package exprcheck

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// MaxDepth keeps generated expressions under the evaluator's token limit.
const MaxDepth = 5

type Case struct {
	Expected   uint64
	Expression string
}

// String renders the case the way ParseCases reads it back.
func (c Case) String() string {
	return fmt.Sprintf("%d %s", c.Expected, c.Expression)
}

type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeParen
	nodeBinary
)

type node struct {
	kind  nodeKind
	op    byte
	value uint64
	left  *node
	right *node
}

func precedence(op byte) int {
	if op == '*' || op == '/' {
		return 2
	}
	return 1
}

func apply(op byte, left, right uint64) uint64 {
	switch op {
	case '+':
		return left + right
	case '-':
		return left - right
	case '*':
		return left * right
	default:
		return uint64(int64(left) / int64(right))
	}
}

// Generate builds a random expression at most depth levels deep. Divisors that would evaluate to
// zero are regenerated.
func Generate(r *rand.Rand, depth int) Case {
	if depth > MaxDepth {
		depth = MaxDepth
	}
	n := generate(r, depth)
	sb := &strings.Builder{}
	n.render(r, sb)
	return Case{Expected: n.value, Expression: strings.TrimSpace(sb.String())}
}

func generate(r *rand.Rand, depth int) *node {
	choice := 0
	if depth > 0 {
		choice = r.Intn(4)
	}

	switch choice {
	case 0:
		v := uint64(r.Intn(1000))
		return &node{kind: nodeNumber, value: v}
	case 1:
		inner := generate(r, depth-1)
		return &node{kind: nodeParen, value: inner.value, left: inner}
	default:
		op := "+-*/"[r.Intn(4)]
		left := generate(r, depth-1)
		right := generate(r, depth-1)
		for op == '/' && right.value == 0 {
			right = generate(r, depth-1)
		}
		return &node{kind: nodeBinary, op: op, value: apply(op, left.value, right.value), left: left, right: right}
	}
}

// binds reports whether child needs no parentheses as an operand of op. Operators are left
// associative, so a right operand of equal precedence must be grouped.
func (n *node) binds(op byte, right bool) bool {
	if n.kind != nodeBinary {
		return true
	}
	if right {
		return precedence(n.op) > precedence(op)
	}
	return precedence(n.op) >= precedence(op)
}

func space(r *rand.Rand, sb *strings.Builder) {
	if r.Intn(3) == 0 {
		sb.WriteByte(' ')
	}
}

func (n *node) render(r *rand.Rand, sb *strings.Builder) {
	space(r, sb)
	switch n.kind {
	case nodeNumber:
		sb.WriteString(strconv.FormatUint(n.value, 10))
	case nodeParen:
		sb.WriteByte('(')
		n.left.render(r, sb)
		sb.WriteByte(')')
	case nodeBinary:
		n.left.renderOperand(r, sb, n.op, false)
		space(r, sb)
		sb.WriteByte(n.op)
		n.right.renderOperand(r, sb, n.op, true)
	}
	space(r, sb)
}

func (n *node) renderOperand(r *rand.Rand, sb *strings.Builder, op byte, right bool) {
	if n.binds(op, right) {
		n.render(r, sb)
		return
	}
	sb.WriteByte('(')
	n.render(r, sb)
	sb.WriteByte(')')
}

// Package expression evaluates debugger expressions such as "$sp + 8*4" or "*($a0 + 16) == 0"
// against a simulated machine.
//
// Expressions are tokenized with a fixed rule table and evaluated by recursing over index
// ranges of the token slice: each range is either a single operand, a range wrapped in one
// pair of parentheses, or split at its weakest-binding operator. No syntax tree is built.
// All arithmetic is on 64-bit words; comparisons and logical operators yield 0 or 1.
package expression

type Evaluator struct {
	machine Machine
	options Options
}

func NewEvaluator(machine Machine, options Options) *Evaluator {
	Initialize()
	return &Evaluator{machine: machine, options: options}
}

func (ev *Evaluator) Options() Options {
	return ev.options
}

func (ev *Evaluator) Tokenize(str string) ([]Token, error) {
	return tokenize(str, ev.options.Lexing)
}

// Evaluate tokenizes and evaluates str. Tokens live only for the duration of the call, so
// concurrent calls are safe as long as the machine is.
func (ev *Evaluator) Evaluate(str string) (uint64, error) {
	tokens, err := tokenize(str, ev.options.Lexing)
	if err != nil {
		return 0, err
	}

	e := evaluation{tokens: tokens, machine: ev.machine, options: ev.options}
	return e.eval(0, len(tokens)-1)
}

// Evaluate evaluates str with default options and reports only whether it succeeded.
func Evaluate(machine Machine, str string) (uint64, bool) {
	value, err := NewEvaluator(machine, Options{}).Evaluate(str)
	if err != nil {
		return 0, false
	}
	return value, true
}

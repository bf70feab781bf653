package debugServer

import "github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"

// CodeEvaluationFailed is returned when an expression does not lex or evaluate.
const CodeEvaluationFailed = -32001

type InitializeResult struct {
	Session   string   `json:"session"`
	Registers []string `json:"registers"`
	Methods   []string `json:"methods"`
}

type ExpressionParams struct {
	Expression string `json:"expression"`
}

type EvaluateResult struct {
	Value uint64 `json:"value"`
	Hex   string `json:"hex"`
}

type TokenizeResult struct {
	Tokens []expression.Token `json:"tokens"`
}

type WatchpointParams struct {
	ID int `json:"id"`
}

type StepParams struct {
	Count int64 `json:"count"`
}

type ReadMemoryParams struct {
	Address uint64 `json:"address"`
	Count   int    `json:"count"`
}

type ReadMemoryResult struct {
	Address uint64   `json:"address"`
	Words   []uint64 `json:"words"`
}

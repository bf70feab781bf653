package monitor

import (
	"context"
	"io"
	"sync"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/journal"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/watchpoint"
)

// Recorder stores evaluations. *journal.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, e *journal.Entry) error
	Recent(ctx context.Context, limit int) ([]*journal.Entry, error)
}

type Options struct {
	Expression  expression.Options
	Prompt      string
	HistoryFile string
	Batch       bool
	Color       bool
	Journal     Recorder // optional
	Output      io.Writer
}

type command struct {
	name        string
	description string
	handler     func(m *Monitor, args string) bool // returns true to quit
}

type Register struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// RunResult describes where execution stopped.
type RunResult struct {
	State   string              `json:"state"`
	PC      uint64              `json:"pc"`
	HaltRet uint64              `json:"haltRet,omitempty"`
	Ended   bool                `json:"ended"` // the program had already ended before this run
	Changes []watchpoint.Change `json:"-"`
	Error   string              `json:"error,omitempty"`
}

type Monitor struct {
	mu          sync.Mutex
	emu         *emulator.EmulatorInstance
	evaluator   *expression.Evaluator
	watchpoints *watchpoint.Pool
	journal     Recorder
	session     string
	options     Options
	out         io.Writer
	commands    []command
	changes     []watchpoint.Change // collected during the current run
}

// Package monitor is the debugger console: a command table over one emulated machine, its
// expression evaluator and its watchpoints. The same Monitor backs the interactive console, the
// JSON-RPC server and the web console.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/journal"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/watchpoint"
)

func New(emu *emulator.EmulatorInstance, options Options) *Monitor {
	if options.Output == nil {
		options.Output = os.Stdout
	}
	if options.Prompt == "" {
		options.Prompt = "(nemu) "
	}

	m := &Monitor{
		emu:         emu,
		evaluator:   expression.NewEvaluator(emu, options.Expression),
		watchpoints: watchpoint.NewPool(),
		journal:     options.Journal,
		session:     uuid.NewString(),
		options:     options,
		out:         options.Output,
	}
	m.commands = commandTable()
	emu.SetStepHook(m.checkWatchpoints)

	util.LogF("monitor session %s started", m.session)
	if options.Expression.Comparisons == expression.CompareConventional {
		util.LogF("relational operators use the %s mapping, set comparisons = \"legacy\" for the swapped < and <= of the reference debugger", options.Expression.Comparisons)
	}
	return m
}

func (m *Monitor) Session() string {
	return m.session
}

// Execute runs one console line and reports whether the console should exit.
func (m *Monitor) Execute(line string) bool {
	return m.ExecuteTo(m.options.Output, line)
}

// ExecuteTo runs one console line with its output sent to w.
func (m *Monitor) ExecuteTo(w io.Writer, line string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.out
	m.out = w
	defer func() { m.out = previous }()

	return m.dispatch(line)
}

func (m *Monitor) dispatch(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)
	for _, cmd := range m.commands {
		if cmd.name == name {
			return cmd.handler(m, args)
		}
	}

	m.printf("Unknown command '%s'\n", name)
	return false
}

func (m *Monitor) printf(format string, args ...interface{}) {
	fmt.Fprintf(m.out, format, args...)
}

// Evaluate evaluates expr against the machine and journals the outcome under source.
func (m *Monitor) Evaluate(source, expr string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluate(source, expr)
}

func (m *Monitor) evaluate(source, expr string) (uint64, error) {
	value, err := m.evaluator.Evaluate(expr)
	m.record(source, expr, value, err)
	return value, err
}

func (m *Monitor) record(source, expr string, value uint64, err error) {
	if m.journal == nil {
		return
	}

	entry := &journal.Entry{Session: m.session, Source: source, Expression: expr, Value: value, OK: err == nil}
	if err != nil {
		entry.Error = err.Error()
	}
	if recordErr := m.journal.Record(context.Background(), entry); recordErr != nil {
		util.LogF("could not journal %q: %v", expr, recordErr)
	}
}

func (m *Monitor) Tokenize(expr string) ([]expression.Token, error) {
	return m.evaluator.Tokenize(expr)
}

// AddWatchpoint evaluates expr once for its initial value and adds it to the pool.
func (m *Monitor) AddWatchpoint(source, expr string) (watchpoint.Watchpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addWatchpoint(source, expr)
}

func (m *Monitor) addWatchpoint(source, expr string) (watchpoint.Watchpoint, error) {
	value, err := m.evaluate(source, expr)
	if err != nil {
		return watchpoint.Watchpoint{}, err
	}
	return m.watchpoints.Add(expr, value)
}

func (m *Monitor) RemoveWatchpoint(no int) error {
	return m.watchpoints.Remove(no)
}

func (m *Monitor) Watchpoints() []watchpoint.Watchpoint {
	return m.watchpoints.List()
}

// Step executes up to n instructions, n < 0 runs until the program halts or a watchpoint fires.
func (m *Monitor) Step(n int64) RunResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run(n)
}

func (m *Monitor) Continue() RunResult {
	return m.Step(-1)
}

func (m *Monitor) run(n int64) RunResult {
	m.changes = nil

	switch m.emu.GetState() {
	case emulator.StateEnd, emulator.StateAbort, emulator.StateQuit:
		return m.result(true)
	}

	m.emu.Execute(n)
	return m.result(false)
}

func (m *Monitor) result(ended bool) RunResult {
	res := RunResult{
		State:   m.emu.GetState().String(),
		PC:      m.emu.GetPC(),
		Ended:   ended,
		Changes: m.changes,
	}

	switch m.emu.GetState() {
	case emulator.StateEnd:
		res.PC = m.emu.GetHaltPC()
		res.HaltRet = m.emu.GetHaltRet()
	case emulator.StateAbort:
		res.PC = m.emu.GetHaltPC()
		if errs := m.emu.GetErrors(); len(errs) > 0 {
			res.Error = errs[len(errs)-1].Message()
		}
	}
	return res
}

// checkWatchpoints runs after every instruction while the monitor lock is held.
func (m *Monitor) checkWatchpoints(*emulator.EmulatorInstance) bool {
	if m.watchpoints.Len() == 0 {
		return false
	}

	changes := m.watchpoints.Check(m.evaluator.Evaluate)
	m.changes = append(m.changes, changes...)
	return len(changes) > 0
}

func (m *Monitor) Registers() []Register {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registers()
}

func (m *Monitor) registers() []Register {
	values := m.emu.Registers()
	regs := make([]Register, 0, len(values)+1)
	for i, name := range emulator.RegisterNames() {
		regs = append(regs, Register{Name: name, Value: values[i]})
	}
	return append(regs, Register{Name: "pc", Value: m.emu.GetPC()})
}

// ReadMemory reads count 8-byte words starting at addr.
func (m *Monitor) ReadMemory(addr uint64, count int) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readMemory(addr, count)
}

func (m *Monitor) readMemory(addr uint64, count int) ([]uint64, error) {
	words := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		word, ok := m.emu.ReadMemory(addr+uint64(i)*8, 8)
		if !ok {
			return words, fmt.Errorf("cannot access memory at address %#x", addr+uint64(i)*8)
		}
		words = append(words, word)
	}
	return words, nil
}

// Quit marks the machine as quit. Later runs report that execution has ended.
func (m *Monitor) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emu.SetState(emulator.StateQuit)
}

func (m *Monitor) State() emulator.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emu.GetState()
}

func (m *Monitor) Recent(limit int) ([]*journal.Entry, error) {
	if m.journal == nil {
		return nil, fmt.Errorf("journal is disabled")
	}
	return m.journal.Recent(context.Background(), limit)
}

package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/watchpoint"
)

func commandTable() []command {
	return []command{
		{"help", "Display information about all supported commands", cmdHelp},
		{"c", "Continue the execution of the program", cmdContinue},
		{"q", "Exit the monitor", cmdQuit},
		{"si", "Usage: si [N]. Execute N instructions, default 1", cmdStep},
		{"info", "Usage: info r|w. Display the registers or the watchpoints", cmdInfo},
		{"x", "Usage: x N EXPR. Scan N 8-byte words of memory starting at EXPR", cmdExamine},
		{"p", "Usage: p EXPR. Evaluate the expression", cmdPrint},
		{"w", "Usage: w EXPR. Stop when the value of EXPR changes", cmdWatch},
		{"d", "Usage: d N. Delete watchpoint N", cmdDelete},
		{"j", "Usage: j [N]. Show the last N journaled evaluations, default 10", cmdJournal},
	}
}

func cmdHelp(m *Monitor, args string) bool {
	if args == "" {
		for _, cmd := range m.commands {
			m.printf("%s - %s\n", m.paint(headerStyle, cmd.name), cmd.description)
		}
		return false
	}

	name := strings.Fields(args)[0]
	for _, cmd := range m.commands {
		if cmd.name == name {
			m.printf("%s - %s\n", m.paint(headerStyle, cmd.name), cmd.description)
			return false
		}
	}
	m.printf("Unknown command '%s'\n", name)
	return false
}

func cmdContinue(m *Monitor, args string) bool {
	m.report(m.run(-1))
	return false
}

// cmdQuit only ends the caller's console. The machine is shared with the other frontends, so
// the process owner marks it quit through Quit.
func cmdQuit(m *Monitor, args string) bool {
	return true
}

func cmdStep(m *Monitor, args string) bool {
	n := int64(1)
	if args != "" {
		parsed, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
		if err != nil {
			m.printf("Usage: si [N]\n")
			return false
		}
		n = parsed
	}

	m.report(m.run(n))
	return false
}

func cmdInfo(m *Monitor, args string) bool {
	switch args {
	case "r":
		for _, reg := range m.registers() {
			m.printf("%-4s %s %d\n", reg.Name, m.paint(addressStyle, fmt.Sprintf("%#018x", reg.Value)), reg.Value)
		}
	case "w":
		list := m.watchpoints.List()
		if len(list) == 0 {
			m.printf("No watchpoints.\n")
			return false
		}
		m.printf("%s\n", m.paint(headerStyle, fmt.Sprintf("%-4s %-20s %-20s %s", "Num", "Value", "Hits", "What")))
		for _, wp := range list {
			m.printf("%-4d %-20d %-20d %s\n", wp.No, wp.Value, wp.Hits, wp.Expression)
		}
	default:
		m.printf("Usage: info r|w\n")
	}
	return false
}

func cmdExamine(m *Monitor, args string) bool {
	countText, expr, ok := strings.Cut(args, " ")
	expr = strings.TrimSpace(expr)
	if !ok || expr == "" {
		m.printf("Usage: x N EXPR\n")
		return false
	}

	count, err := strconv.Atoi(countText)
	if err != nil || count < 0 {
		m.printf("Usage: x N EXPR\n")
		return false
	}

	addr, err := m.evaluate("console", expr)
	if err != nil {
		m.printInvalid(err)
		return false
	}

	for i := 0; i < count; {
		m.printf("%s: ", m.paint(addressStyle, fmt.Sprintf("%#018x", addr)))
		for j := 0; i < count && j < 4; i, j = i+1, j+1 {
			word, ok := m.emu.ReadMemory(addr, 8)
			if !ok {
				m.printf("\n%s\n", m.paint(errorStyle, fmt.Sprintf("Cannot access memory at address %#x", addr)))
				return false
			}
			m.printf("%#018x ", word)
			addr += 8
		}
		m.printf("\n")
	}
	return false
}

func cmdPrint(m *Monitor, args string) bool {
	if args == "" {
		m.printf("Usage: p EXPR\n")
		return false
	}

	value, err := m.evaluate("console", args)
	if err != nil {
		m.printInvalid(err)
		return false
	}
	m.printf("%d %s\n", value, m.paint(mutedStyle, fmt.Sprintf("(%#x)", value)))
	return false
}

func cmdWatch(m *Monitor, args string) bool {
	if args == "" {
		m.printf("Usage: w EXPR\n")
		return false
	}

	wp, err := m.addWatchpoint("console", args)
	if err != nil {
		if errors.Is(err, watchpoint.ErrPoolExhausted) {
			m.printf("%s\n", m.paint(errorStyle, err.Error()))
		} else {
			m.printInvalid(err)
		}
		return false
	}
	m.printf("Watchpoint %d: %s\n", wp.No, wp.Expression)
	return false
}

func cmdDelete(m *Monitor, args string) bool {
	no, err := strconv.Atoi(args)
	if err != nil {
		m.printf("Usage: d N\n")
		return false
	}

	if err := m.watchpoints.Remove(no); err != nil {
		m.printf("%s\n", m.paint(errorStyle, err.Error()))
		return false
	}
	m.printf("Deleted watchpoint %d\n", no)
	return false
}

func cmdJournal(m *Monitor, args string) bool {
	if m.journal == nil {
		m.printf("Journal is disabled\n")
		return false
	}

	limit := 10
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			m.printf("Usage: j [N]\n")
			return false
		}
		limit = n
	}

	entries, err := m.Recent(limit)
	if err != nil {
		m.printf("%s\n", m.paint(errorStyle, err.Error()))
		return false
	}
	for _, e := range entries {
		prefix := m.paint(mutedStyle, fmt.Sprintf("#%d [%s %s]", e.ID, shortSession(e.Session), e.Source))
		if e.OK {
			m.printf("%s %s = %d\n", prefix, e.Expression, e.Value)
		} else {
			m.printf("%s %s: %s\n", prefix, e.Expression, e.Error)
		}
	}
	return false
}

func (m *Monitor) printInvalid(err error) {
	m.printf("%s: %v\n", m.paint(errorStyle, "invalid expression"), err)
	var lexical *expression.LexicalError
	if errors.As(err, &lexical) {
		m.printf("%s\n", lexical.Caret())
	}
}

// report prints where a run stopped.
func (m *Monitor) report(res RunResult) {
	if res.Ended {
		m.printf("Program execution has ended. To restart the program, exit the monitor and run again.\n")
		return
	}

	for _, c := range res.Changes {
		if c.Err != nil {
			m.printf("\nWatchpoint %d: %s\n%s\n", c.Watchpoint.No, c.Watchpoint.Expression, m.paint(errorStyle, c.Err.Error()))
			m.printf("It stops execution after every instruction while it fails, delete it with d %d\n", c.Watchpoint.No)
			continue
		}
		m.printf("\nWatchpoint %d: %s\n\nOld value = %d\nNew value = %d\n", c.Watchpoint.No, c.Watchpoint.Expression, c.Old, c.New)
	}

	switch m.emu.GetState() {
	case emulator.StateEnd:
		if res.HaltRet == 0 {
			m.printf("%s at pc = %#018x\n", m.paint(goodStyle, "HIT GOOD TRAP"), res.PC)
		} else {
			m.printf("%s at pc = %#018x\n", m.paint(errorStyle, "HIT BAD TRAP"), res.PC)
		}
	case emulator.StateAbort:
		m.printf("%s at pc = %#018x: %s\n", m.paint(errorStyle, "ABORT"), res.PC, res.Error)
	}
}

func shortSession(session string) string {
	if len(session) > 8 {
		return session[:8]
	}
	return session
}

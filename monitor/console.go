package monitor

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// RunConsole reads commands until q or end of input. In batch mode the program is run to
// completion without prompting.
func (m *Monitor) RunConsole() error {
	if m.options.Batch {
		m.Execute("c")
		return nil
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// history is best-effort
	if m.options.HistoryFile != "" {
		if f, err := os.Open(m.options.HistoryFile); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	for {
		line, err := ln.Prompt(m.options.Prompt)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}

		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if m.Execute(line) {
			m.Quit()
			break
		}
	}

	if m.options.HistoryFile != "" {
		if f, err := os.Create(m.options.HistoryFile); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return nil
}

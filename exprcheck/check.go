package exprcheck

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Evaluator interface {
	Evaluate(expr string) (uint64, error)
}

type TestResult struct {
	Name     string `json:"name"`
	Expected uint64 `json:"expected"`
	Got      uint64 `json:"got"`
	Status   string `json:"status"`
	Output   string `json:"output,omitempty"`
}

type Report struct {
	Tests  []TestResult `json:"tests"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

func (r *Report) add(result TestResult, success bool) {
	if success {
		result.Status = "passed"
		r.Passed++
	} else {
		result.Status = "failed"
		r.Failed++
	}
	r.Tests = append(r.Tests, result)
}

// ParseCases reads one "expected expression" pair per line. Blank lines are skipped.
func ParseCases(rd io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(rd)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		valueText, expr, ok := strings.Cut(line, " ")
		if !ok || strings.TrimSpace(expr) == "" {
			return nil, fmt.Errorf("line %d: expected a value and an expression", lineNo)
		}
		value, err := strconv.ParseUint(valueText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cases = append(cases, Case{Expected: value, Expression: strings.TrimSpace(expr)})
	}
	return cases, scanner.Err()
}

func Check(ev Evaluator, cases []Case) *Report {
	report := &Report{Tests: []TestResult{}}
	for i, c := range cases {
		result := TestResult{Name: fmt.Sprintf("expr #%d", i+1), Expected: c.Expected}
		got, err := ev.Evaluate(c.Expression)
		result.Got = got
		switch {
		case err != nil:
			result.Output = fmt.Sprintf("%s\n%v", c.Expression, err)
		case got != c.Expected:
			result.Output = fmt.Sprintf("%s\ncorrect result: %d, result: %d", c.Expression, c.Expected, got)
		}
		report.add(result, err == nil && got == c.Expected)
	}
	return report
}

func (r *Report) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

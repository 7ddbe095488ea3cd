package extract

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/testcase-formatter/pkg/tabular"
)

// Step is one executable test step; order in the slice is execution order.
type Step struct {
	Action   string `json:"action"`
	Expected string `json:"expected"`
}

// stepColumns holds the resolved column layout of a steps table.
type stepColumns struct {
	step     int
	testData int // -1 when absent
	expected int
}

func resolveStepColumns(t *tabular.Table) (stepColumns, error) {
	cols := stepColumns{step: -1, testData: -1, expected: -1}

	// exact, then substring, then positional fallback for each column
	cols.step = t.FindExact("#", "step")
	if cols.step < 0 {
		cols.step = t.FindContains("step")
	}
	cols.testData = t.FindExact("test data")
	if cols.testData < 0 {
		cols.testData = t.FindContains("test data", "testdata")
	}
	cols.expected = t.FindExact("expected", "expected result", "result")
	if cols.expected < 0 {
		cols.expected = t.FindContains("expected", "result")
	}

	// Positional layout: first column is the step, the last the expected
	// result, and the middle the test data (only with three or more columns).
	if cols.step < 0 && t.Width() >= 1 {
		cols.step = 0
	}
	if cols.expected < 0 && t.Width() >= 2 {
		cols.expected = t.Width() - 1
	}
	if cols.testData < 0 && t.Width() >= 3 {
		cols.testData = t.Width() / 2
	}

	if cols.step < 0 || cols.expected < 0 {
		return cols, fmt.Errorf("could not identify step or expected result columns")
	}
	return cols, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractSteps reconstructs the ordered step list from a steps table. Rows
// where both the computed action and the expected result are empty are
// dropped; source order is preserved for the rest.
func ExtractSteps(t *tabular.Table) ([]Step, error) {
	cols, err := resolveStepColumns(t)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for i := range t.Rows {
		action := t.Cell(i, cols.step)

		// A purely numeric step cell is an index; the action text lives in
		// the next column, unless that column holds the expected result.
		if isNumeric(action) {
			next := cols.step + 1
			if next < t.Width() && next != cols.expected {
				action = t.Cell(i, next)
			}
		}

		if cols.testData >= 0 {
			if data := t.Cell(i, cols.testData); data != "" && !strings.HasSuffix(action, data) {
				action += " with data: " + data
			}
		}

		expected := t.Cell(i, cols.expected)
		if action == "" && expected == "" {
			continue
		}
		steps = append(steps, Step{Action: action, Expected: expected})
	}
	return steps, nil
}

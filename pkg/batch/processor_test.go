package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/testcase-formatter/pkg/prompt"
	"github.com/go-go-golems/testcase-formatter/pkg/runlog"
	"github.com/go-go-golems/testcase-formatter/pkg/schema"
	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

const detailsCSV = `Key,Summary,Description,Priority
TC-1,Login works,User can log in,High
`

const stepsCSV = `#,Test Data,Expected Result
Open login page,user@example.com,Form is shown
Submit credentials,,User is logged in
`

type fakeFormatter struct {
	mu       sync.Mutex
	calls    int
	response func(unit string) ([]byte, error)
}

func (f *fakeFormatter) Format(ctx context.Context, unit, prompt string, validate func([]byte) error) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	raw, err := f.response(unit)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func validResponse(title string) []byte {
	return []byte(fmt.Sprintf(`[
	  {
	    "type": "Test Case",
	    "title": %q,
	    "description": "<div><p><strong>Test Objective:</strong> x</p></div>",
	    "automation_status": "Not Automated",
	    "test_steps": [{"action": "a", "expected": "e"}],
	    "additional_fields": {
	      "Microsoft.VSTS.Common.Priority": 1,
	      "System.Tags": "UNO"
	    }
	  }
	]`, title))
}

func writeUnit(t *testing.T, root, name string) units.Unit {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	details := filepath.Join(dir, "details.csv")
	steps := filepath.Join(dir, "steps.csv")
	require.NoError(t, os.WriteFile(details, []byte(detailsCSV), 0o644))
	require.NoError(t, os.WriteFile(steps, []byte(stepsCSV), 0o644))
	return units.Unit{Name: name, Dir: dir, Spreadsheet: details, StepsFile: steps}
}

func newTestProcessor(t *testing.T, f Formatter, outDir string) *Processor {
	t.Helper()
	builder, err := prompt.NewBuilder("", prompt.NewCounter(""), prompt.Metadata{}, "", nil)
	require.NoError(t, err)
	return &Processor{
		Formatter: f,
		Builder:   builder,
		Limits:    Limits{MaxItems: 5, MaxTokens: 30000},
		OutputDir: outDir,
	}
}

func TestPrepare(t *testing.T) {
	root := t.TempDir()
	unit := writeUnit(t, root, "TC-1")
	p := newTestProcessor(t, &fakeFormatter{}, t.TempDir())

	item, err := p.Prepare(unit)
	require.NoError(t, err)
	assert.Equal(t, "TC-1", item.Record.Key)
	assert.Len(t, item.Steps, 2)
	assert.Contains(t, item.Prompt, "Login works")
	assert.Contains(t, item.Prompt, "Step 1: Open login page with data: user@example.com")
	assert.Positive(t, item.Tokens)
}

func TestRun_WritesArtifactsAndLogs(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "formatted")
	logDir := t.TempDir()

	all := []units.Unit{writeUnit(t, root, "TC-1"), writeUnit(t, root, "TC-2")}
	f := &fakeFormatter{response: func(unit string) ([]byte, error) {
		return validResponse("formatted " + unit), nil
	}}
	p := newTestProcessor(t, f, outDir)
	rl := runlog.New(logDir)

	summary, err := p.Run(context.Background(), all, rl)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Batches)

	data, err := os.ReadFile(filepath.Join(outDir, "tc-1.json"))
	require.NoError(t, err)
	cases, err := schema.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "formatted TC-1", cases[0].Title)

	success, err := os.ReadFile(filepath.Join(logDir, "success.log"))
	require.NoError(t, err)
	assert.Contains(t, string(success), "TC-1")
	assert.Contains(t, string(success), "TC-2")
}

func TestRun_FailureDoesNotStopRun(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	logDir := t.TempDir()

	all := []units.Unit{writeUnit(t, root, "TC-1"), writeUnit(t, root, "TC-2")}
	f := &fakeFormatter{response: func(unit string) ([]byte, error) {
		if unit == "TC-1" {
			return nil, errors.New("failed after 3 attempts: response is not valid JSON")
		}
		return validResponse("ok"), nil
	}}
	p := newTestProcessor(t, f, outDir)

	summary, err := p.Run(context.Background(), all, runlog.New(logDir))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	_, statErr := os.Stat(filepath.Join(outDir, "tc-2.json"))
	assert.NoError(t, statErr)
	failure, err := os.ReadFile(filepath.Join(logDir, "failure.log"))
	require.NoError(t, err)
	assert.Contains(t, string(failure), "TC-1")
}

func TestRun_DeduplicatesUnitsWithinRun(t *testing.T) {
	root := t.TempDir()
	unit := writeUnit(t, root, "TC-1")

	f := &fakeFormatter{response: func(unit string) ([]byte, error) {
		return validResponse("ok"), nil
	}}
	p := newTestProcessor(t, f, t.TempDir())

	summary, err := p.Run(context.Background(), []units.Unit{unit, unit}, runlog.New(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, f.calls)
}

func TestRun_DryRunSubmitsNothing(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	f := &fakeFormatter{response: func(unit string) ([]byte, error) {
		return validResponse("ok"), nil
	}}
	p := newTestProcessor(t, f, outDir)
	p.DryRun = true

	summary, err := p.Run(context.Background(), []units.Unit{writeUnit(t, root, "TC-1")}, runlog.New(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Batches)
}

func TestRun_AppliesMetadataOverrides(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	f := &fakeFormatter{response: func(unit string) ([]byte, error) {
		return validResponse("ok"), nil
	}}
	p := newTestProcessor(t, f, outDir)
	p.Meta = prompt.Metadata{AreaPath: "Inficore", IterationPath: "Sprint 9"}

	_, err := p.Run(context.Background(), []units.Unit{writeUnit(t, root, "TC-1")}, runlog.New(t.TempDir()))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "tc-1.json"))
	require.NoError(t, err)
	var cases []schema.TestCase
	require.NoError(t, json.Unmarshal(data, &cases))
	assert.Equal(t, "Inficore", cases[0].AdditionalFields.AreaPath)
	assert.Equal(t, "Sprint 9", cases[0].AdditionalFields.IterationPath)
}

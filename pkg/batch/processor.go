package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/testcase-formatter/pkg/extract"
	"github.com/go-go-golems/testcase-formatter/pkg/output"
	"github.com/go-go-golems/testcase-formatter/pkg/prompt"
	"github.com/go-go-golems/testcase-formatter/pkg/runlog"
	"github.com/go-go-golems/testcase-formatter/pkg/schema"
	"github.com/go-go-golems/testcase-formatter/pkg/tabular"
	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

// Formatter is the remote side of the pipeline: it turns one prompt into a
// validated response document.
type Formatter interface {
	Format(ctx context.Context, unit, prompt string, validate func([]byte) error) ([]byte, error)
}

// Processor drives a run: prepare units, pack them into batches, submit
// each batch and persist the validated results.
type Processor struct {
	Formatter Formatter
	Builder   *prompt.Builder
	Limits    Limits
	OutputDir string
	Delay     time.Duration
	DryRun    bool

	// Overrides stamped onto every decoded case after validation, so the
	// persisted artifact carries them even when the model drops a field.
	Meta prompt.Metadata
}

// Summary is the end-of-run accounting.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Batches   int
}

// Prepare loads one unit's spreadsheet and steps file and renders its
// prompt.
func (p *Processor) Prepare(unit units.Unit) (Prepared, error) {
	details, err := tabular.LoadFile(unit.Spreadsheet)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to load spreadsheet: %w", err)
	}
	rec, warnings := extract.SniffRecord(details)
	for _, w := range warnings {
		fmt.Println(output.Warnf("%s: %s", unit.Name, w))
	}
	if rec.Key == "" {
		rec.Key = unit.Name
	}

	stepsTable, err := tabular.LoadFile(unit.StepsFile)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to load steps file: %w", err)
	}
	steps, err := extract.ExtractSteps(stepsTable)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to extract steps: %w", err)
	}

	text, tokens, err := p.Builder.Render(rec, steps)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{Unit: unit, Record: rec, Steps: steps, Prompt: text, Tokens: tokens}, nil
}

// Run processes the given units: each is prepared, the prepared items are
// sorted and partitioned, and batches are submitted one after another with
// the configured delay in between. Prompts within a batch run
// concurrently. Per-unit failures are recorded and do not stop the run.
func (p *Processor) Run(ctx context.Context, all []units.Unit, rl *runlog.Log) (Summary, error) {
	var summary Summary

	var items []Prepared
	for _, unit := range all {
		if !rl.Claim(unit.Name) {
			log.Debug().Str("unit", unit.Name).Msg("already handled this run")
			summary.Skipped++
			continue
		}
		item, err := p.Prepare(unit)
		if err != nil {
			fmt.Println(output.Failuref(unit.Name, err))
			if lerr := rl.Failure(unit.Name, err); lerr != nil {
				log.Warn().Err(lerr).Msg("failed to record failure")
			}
			summary.Failed++
			continue
		}
		items = append(items, item)
	}

	SortByTokens(items)
	batches := Partition(items, p.Limits)
	summary.Batches = len(batches)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && p.Delay > 0 {
			log.Debug().Dur("delay", p.Delay).Msg("waiting before next batch")
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.Delay):
			}
		}

		fmt.Print(output.BatchHeader(i+1, len(batches), len(batch)))
		if p.DryRun {
			for _, item := range batch {
				fmt.Println(output.Notef("  would submit %s (%d tokens)", item.Unit.Name, item.Tokens))
			}
			continue
		}
		p.runBatch(ctx, batch, rl)
	}

	processed, failed := rl.Counts()
	summary.Processed = processed
	summary.Failed = failed
	return summary, nil
}

func (p *Processor) runBatch(ctx context.Context, batch []Prepared, rl *runlog.Log) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, item := range batch {
		wg.Add(1)
		go func(item Prepared) {
			defer wg.Done()
			path, err := p.processOne(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Println(output.Failuref(item.Unit.Name, err))
				if lerr := rl.Failure(item.Unit.Name, err); lerr != nil {
					log.Warn().Err(lerr).Msg("failed to record failure")
				}
				return
			}
			fmt.Println(output.Successf(item.Unit.Name, path))
			if lerr := rl.Success(item.Unit.Name, path); lerr != nil {
				log.Warn().Err(lerr).Msg("failed to record success")
			}
		}(item)
	}
	wg.Wait()
}

func (p *Processor) processOne(ctx context.Context, item Prepared) (string, error) {
	raw, err := p.Formatter.Format(ctx, item.Unit.Name, item.Prompt, schema.Validate)
	if err != nil {
		return "", err
	}
	cases, err := schema.Decode(raw)
	if err != nil {
		return "", err
	}
	for i := range cases {
		p.applyOverrides(&cases[i])
	}
	return output.WriteArtifact(p.OutputDir, item.Unit.Name, cases)
}

// applyOverrides stamps the configured work item fields onto a decoded
// case, taking precedence over whatever the model emitted.
func (p *Processor) applyOverrides(tc *schema.TestCase) {
	if p.Meta.AreaPath != "" {
		tc.AdditionalFields.AreaPath = p.Meta.AreaPath
	}
	if p.Meta.IterationPath != "" {
		tc.AdditionalFields.IterationPath = p.Meta.IterationPath
	}
	if p.Meta.AssignedTo != "" {
		tc.AdditionalFields.AssignedTo = p.Meta.AssignedTo
	}
}

package cmds

import (
	"context"
	"fmt"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/testcase-formatter/pkg/extract"
	"github.com/go-go-golems/testcase-formatter/pkg/prompt"
	"github.com/go-go-golems/testcase-formatter/pkg/tabular"
	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

type ExtractCommand struct{ *gcmds.CommandDescription }

type ExtractSettings struct {
	Root       string `glazed.parameter:"root"`
	Unit       string `glazed.parameter:"unit"`
	ShowPrompt bool   `glazed.parameter:"show-prompt"`
}

func NewExtractCommand() (*ExtractCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"extract",
		gcmds.WithShort("Extract one unit's record and steps without calling the API"),
		gcmds.WithArguments(
			parameters.NewParameterDefinition("root", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithHelp("Directory holding one subdirectory per test case")),
		),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("unit", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithShortFlag("u"), parameters.WithHelp("Unit name to extract")),
			parameters.NewParameterDefinition("show-prompt", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Print the rendered prompt to stdout")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	return &ExtractCommand{cd}, nil
}

// GlazeCommand: output one row per extracted step, preceded by the record
func (c *ExtractCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &ExtractSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	unit, err := units.Find(s.Root, s.Unit)
	if err != nil {
		return err
	}

	details, err := tabular.LoadFile(unit.Spreadsheet)
	if err != nil {
		return fmt.Errorf("failed to load spreadsheet: %w", err)
	}
	rec, warnings := extract.SniffRecord(details)
	if rec.Key == "" {
		rec.Key = unit.Name
	}

	stepsTable, err := tabular.LoadFile(unit.StepsFile)
	if err != nil {
		return fmt.Errorf("failed to load steps file: %w", err)
	}
	steps, err := extract.ExtractSteps(stepsTable)
	if err != nil {
		return fmt.Errorf("failed to extract steps: %w", err)
	}

	row := types.NewRow(
		types.MRP("field", "record"),
		types.MRP("key", rec.Key),
		types.MRP("summary", rec.Summary),
		types.MRP("description", rec.Description),
		types.MRP("priority", rec.Priority),
		types.MRP("priority_value", rec.PriorityValue),
		types.MRP("warnings", warnings),
	)
	if err := gp.AddRow(ctx, row); err != nil {
		return err
	}
	for i, step := range steps {
		row := types.NewRow(
			types.MRP("field", "step"),
			types.MRP("index", i+1),
			types.MRP("action", step.Action),
			types.MRP("expected", step.Expected),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}

	if s.ShowPrompt {
		builder, err := prompt.NewBuilder("", prompt.NewCounter(""), prompt.Metadata{}, "", nil)
		if err != nil {
			return err
		}
		text, tokens, err := builder.Render(rec, steps)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n(%d tokens)\n", text, tokens)
	}
	return nil
}

var _ gcmds.GlazeCommand = &ExtractCommand{}

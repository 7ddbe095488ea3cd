package cmds

import (
	"context"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

type ListCommand struct{ *gcmds.CommandDescription }

type ListSettings struct {
	Root        string `glazed.parameter:"root"`
	ShowSkipped bool   `glazed.parameter:"show-skipped"`
}

func NewListCommand() (*ListCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"list",
		gcmds.WithShort("List processable test case directories under a root"),
		gcmds.WithArguments(
			parameters.NewParameterDefinition("root", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithHelp("Directory holding one subdirectory per test case")),
		),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("show-skipped", parameters.ParameterTypeBool, parameters.WithDefault(true), parameters.WithHelp("Include directories that cannot be processed")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	return &ListCommand{cd}, nil
}

// GlazeCommand: output structured rows
func (c *ListCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &ListSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	found, skips, err := units.Discover(s.Root)
	if err != nil {
		return err
	}

	for _, u := range found {
		row := types.NewRow(
			types.MRP("unit", u.Name),
			types.MRP("status", "ready"),
			types.MRP("spreadsheet", u.Spreadsheet),
			types.MRP("steps", u.StepsFile),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	if s.ShowSkipped {
		for _, skip := range skips {
			row := types.NewRow(
				types.MRP("unit", skip.Name),
				types.MRP("status", "skipped"),
				types.MRP("reason", skip.Reason),
			)
			if err := gp.AddRow(ctx, row); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ gcmds.GlazeCommand = &ListCommand{}

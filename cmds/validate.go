package cmds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/testcase-formatter/pkg/output"
	"github.com/go-go-golems/testcase-formatter/pkg/schema"
)

type ValidateCommand struct{ *gcmds.CommandDescription }

type ValidateSettings struct {
	Dir string `glazed.parameter:"dir"`
}

func NewValidateCommand() (*ValidateCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"validate",
		gcmds.WithShort("Re-validate persisted artifacts against the test case schema"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("dir", parameters.ParameterTypeString, parameters.WithDefault("formatted"), parameters.WithShortFlag("d"), parameters.WithHelp("Directory holding formatted JSON artifacts")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	return &ValidateCommand{cd}, nil
}

func (c *ValidateCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &ValidateSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", s.Dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("no JSON artifacts under %s", s.Dir)
	}

	invalid := 0
	for _, name := range names {
		path := filepath.Join(s.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var row types.Row
		if cases, err := schema.Decode(data); err != nil {
			invalid++
			row = types.NewRow(
				types.MRP("artifact", name),
				types.MRP("valid", false),
				types.MRP("error", output.ShortError(err)),
			)
		} else {
			row = types.NewRow(
				types.MRP("artifact", name),
				types.MRP("valid", true),
				types.MRP("cases", len(cases)),
			)
		}
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d artifact(s) failed validation", invalid, len(names))
	}
	return nil
}

var _ gcmds.GlazeCommand = &ValidateCommand{}

package cmds

import (
	"context"
	"fmt"
	"time"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"github.com/go-go-golems/testcase-formatter/pkg/batch"
	"github.com/go-go-golems/testcase-formatter/pkg/cmdutil"
	"github.com/go-go-golems/testcase-formatter/pkg/config"
	"github.com/go-go-golems/testcase-formatter/pkg/openai"
	"github.com/go-go-golems/testcase-formatter/pkg/openailayer"
	"github.com/go-go-golems/testcase-formatter/pkg/output"
	"github.com/go-go-golems/testcase-formatter/pkg/prompt"
	"github.com/go-go-golems/testcase-formatter/pkg/runlog"
	"github.com/go-go-golems/testcase-formatter/pkg/units"
)

type ProcessCommand struct{ *gcmds.CommandDescription }

type ProcessSettings struct {
	Root          string   `glazed.parameter:"root"`
	All           bool     `glazed.parameter:"all"`
	Units         []string `glazed.parameter:"unit"`
	Profile       string   `glazed.parameter:"profile"`
	OutputDir     string   `glazed.parameter:"output-dir"`
	BatchSize     int      `glazed.parameter:"batch-size"`
	MaxTokens     int      `glazed.parameter:"max-tokens"`
	Delay         float64  `glazed.parameter:"delay"`
	AreaPath      string   `glazed.parameter:"area-path"`
	IterationPath string   `glazed.parameter:"iteration-path"`
	AssignedTo    string   `glazed.parameter:"assigned-to"`
	DryRun        bool     `glazed.parameter:"dry-run"`
	NoColor       bool     `glazed.parameter:"no-color"`
}

func NewProcessCommand() (*ProcessCommand, error) {
	layer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}

	cd := gcmds.NewCommandDescription(
		"process",
		gcmds.WithShort("Reformat test case directories into validated JSON via the OpenAI API"),
		gcmds.WithArguments(
			parameters.NewParameterDefinition("root", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithHelp("Directory holding one subdirectory per test case")),
		),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("all", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Process every unit under the root")),
			parameters.NewParameterDefinition("unit", parameters.ParameterTypeStringList, parameters.WithHelp("Only process units with these names; default all")),
			parameters.NewParameterDefinition("profile", parameters.ParameterTypeString, parameters.WithShortFlag("p"), parameters.WithHelp("YAML profile with run settings")),
			parameters.NewParameterDefinition("output-dir", parameters.ParameterTypeString, parameters.WithHelp("Where formatted JSON artifacts are written (default: formatted)")),
			parameters.NewParameterDefinition("batch-size", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Max units per batch (default 5)")),
			parameters.NewParameterDefinition("max-tokens", parameters.ParameterTypeInteger, parameters.WithDefault(0), parameters.WithHelp("Max prompt tokens per batch (default 30000)")),
			parameters.NewParameterDefinition("delay", parameters.ParameterTypeFloat, parameters.WithDefault(-1.0), parameters.WithHelp("Seconds to wait between batches (default 2)")),
			parameters.NewParameterDefinition("area-path", parameters.ParameterTypeString, parameters.WithHelp("System.AreaPath stamped onto every formatted case")),
			parameters.NewParameterDefinition("iteration-path", parameters.ParameterTypeString, parameters.WithHelp("System.IterationPath stamped onto every formatted case")),
			parameters.NewParameterDefinition("assigned-to", parameters.ParameterTypeString, parameters.WithHelp("System.AssignedTo stamped onto every formatted case")),
			parameters.NewParameterDefinition("dry-run", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Show batches without calling the API")),
			parameters.NewParameterDefinition("no-color", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Disable colored console output")),
		),
		gcmds.WithLayersList(layer),
	)
	_, err = openailayer.AddOpenAILayerToCommand(cd)
	if err != nil {
		return nil, err
	}
	return &ProcessCommand{cd}, nil
}

func (c *ProcessCommand) Run(ctx context.Context, parsed *glayers.ParsedLayers) error {
	s := &ProcessSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}
	oai, err := openailayer.GetOpenAISettings(parsed)
	if err != nil {
		return err
	}

	output.InitConsole(s.NoColor)

	profile, err := config.Load(s.Profile)
	if err != nil {
		return err
	}
	applyFlagOverrides(profile, s, oai)

	if !s.All && len(s.Units) == 0 {
		return fmt.Errorf("nothing to do: pass --all or at least one --unit")
	}

	all, skips, err := units.Discover(s.Root)
	if err != nil {
		return err
	}
	for _, skip := range skips {
		fmt.Println(output.Notef("skipping %s: %s", skip.Name, skip.Reason))
	}
	selected := cmdutil.FilterItems(all, s.Units, func(u units.Unit) string { return u.Name })
	if len(s.Units) > 0 && len(selected) < len(cmdutil.BuildSelectorSet(s.Units)) {
		fmt.Println(output.Warnf("%d of %d requested unit(s) not found", len(cmdutil.BuildSelectorSet(s.Units))-len(selected), len(cmdutil.BuildSelectorSet(s.Units))))
	}
	if len(selected) == 0 {
		return fmt.Errorf("no processable units under %s", s.Root)
	}

	processor, err := buildProcessor(ctx, profile, oai, s.DryRun)
	if err != nil {
		return err
	}

	rl := runlog.New(profile.OutputDir)
	summary, err := processor.Run(ctx, selected, rl)
	if err != nil {
		return err
	}
	fmt.Println(output.Summary(summary.Processed, summary.Failed, summary.Skipped+len(skips)))
	if summary.Failed > 0 {
		return fmt.Errorf("%d unit(s) failed", summary.Failed)
	}
	return nil
}

// applyFlagOverrides lets explicit flags win over profile values.
func applyFlagOverrides(profile *config.Profile, s *ProcessSettings, oai *openailayer.OpenAISettings) {
	if s.OutputDir != "" {
		profile.OutputDir = s.OutputDir
	}
	if s.BatchSize > 0 {
		profile.BatchSize = s.BatchSize
	}
	if s.MaxTokens > 0 {
		profile.MaxBatchTokens = s.MaxTokens
	}
	if s.Delay >= 0 {
		profile.BatchDelaySeconds = s.Delay
	}
	if s.AreaPath != "" {
		profile.AreaPath = s.AreaPath
	}
	if s.IterationPath != "" {
		profile.IterationPath = s.IterationPath
	}
	if s.AssignedTo != "" {
		profile.AssignedTo = s.AssignedTo
	}
	if oai.Model != "" {
		profile.Model = oai.Model
	}
	if oai.RequestsPerMinute > 0 {
		profile.RequestsPerMinute = oai.RequestsPerMinute
	}
}

func buildProcessor(ctx context.Context, profile *config.Profile, oai *openailayer.OpenAISettings, dryRun bool) (*batch.Processor, error) {
	meta := prompt.Metadata{
		AreaPath:      profile.AreaPath,
		IterationPath: profile.IterationPath,
		AssignedTo:    profile.AssignedTo,
	}
	templateText, err := profile.Template()
	if err != nil {
		return nil, err
	}
	defaultLabel, appTypes := profile.AppTypes()
	builder, err := prompt.NewBuilder(templateText, prompt.NewCounter(profile.Model), meta, defaultLabel, appTypes)
	if err != nil {
		return nil, err
	}

	processor := &batch.Processor{
		Builder:   builder,
		Limits:    batch.Limits{MaxItems: profile.BatchSize, MaxTokens: profile.MaxBatchTokens},
		OutputDir: profile.OutputDir,
		Delay:     time.Duration(profile.BatchDelaySeconds * float64(time.Second)),
		DryRun:    dryRun,
		Meta:      meta,
	}
	if dryRun {
		return processor, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	apiKey, err := openai.ResolveAPIKey(ctx2, oai.APIKey, openai.KeySource(oai.APIKeySource), oai.APIKeyFile, oai.APIKeyVaultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve OpenAI API key: %w", err)
	}
	processor.Formatter = openai.NewClient(openai.Options{
		APIKey:            apiKey,
		Model:             profile.Model,
		BaseURL:           oai.BaseURL,
		SystemMessage:     prompt.SystemMessage,
		RequestsPerMinute: profile.RequestsPerMinute,
		MaxAttempts:       profile.MaxAttempts,
	})
	return processor, nil
}

var _ gcmds.BareCommand = &ProcessCommand{}

package cmds

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/go-go-golems/testcase-formatter/pkg/openai"
	"github.com/go-go-golems/testcase-formatter/pkg/openailayer"
)

type KeyCommand struct{ *gcmds.CommandDescription }

func NewKeyCommand() (*KeyCommand, error) {
	cmdLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}

	cd := gcmds.NewCommandDescription(
		"key",
		gcmds.WithShort("Show which source the OpenAI API key resolves from"),
		gcmds.WithLayersList(cmdLayer),
	)
	_, err = openailayer.AddOpenAILayerToCommand(cd)
	if err != nil {
		return nil, err
	}
	return &KeyCommand{cd}, nil
}

// censorKey keeps just enough of the key to recognize it.
func censorKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}

// Glaze-style command producing structured rows
func (c *KeyCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	oai, err := openailayer.GetOpenAISettings(parsed)
	if err != nil {
		return err
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	key, err := openai.ResolveAPIKey(ctx2, oai.APIKey, openai.KeySource(oai.APIKeySource), oai.APIKeyFile, oai.APIKeyVaultPath)
	if err != nil {
		return fmt.Errorf("failed to resolve OpenAI API key: %w", err)
	}

	// Report where the key actually came from, not just the configured source.
	source := oai.APIKeySource
	if source == "" || source == string(openai.KeySourceAuto) {
		switch {
		case oai.APIKey != "":
			source = "flag"
		case os.Getenv("OPENAI_API_KEY") == key:
			source = "env"
		default:
			source = "file"
		}
	}

	row := types.NewRow(
		types.MRP("key", censorKey(key)),
		types.MRP("source", source),
		types.MRP("length", len(key)),
	)
	return gp.AddRow(ctx, row)
}

var _ gcmds.GlazeCommand = &KeyCommand{}

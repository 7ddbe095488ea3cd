package openailayer

import (
	"fmt"

	glzcms "github.com/go-go-golems/glazed/pkg/cmds"
	glzlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
)

const OpenAILayerSlug = "openai"

type OpenAISettings struct {
	APIKey            string `glazed.parameter:"api-key"`
	APIKeySource      string `glazed.parameter:"api-key-source"`
	APIKeyFile        string `glazed.parameter:"api-key-file"`
	APIKeyVaultPath   string `glazed.parameter:"api-key-vault-path"`
	BaseURL           string `glazed.parameter:"base-url"`
	Model             string `glazed.parameter:"model"`
	RequestsPerMinute int    `glazed.parameter:"requests-per-minute"`
}

// NewOpenAILayer defines a reusable parameter layer for OpenAI connection
// settings.
func NewOpenAILayer() (glzlayers.ParameterLayer, error) {
	return glzlayers.NewParameterLayer(
		OpenAILayerSlug,
		"OpenAI connection settings",
		glzlayers.WithParameterDefinitions(
			parameters.NewParameterDefinition(
				"api-key",
				parameters.ParameterTypeString,
				parameters.WithHelp("OpenAI API key (optional)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"api-key-source",
				parameters.ParameterTypeChoice,
				parameters.WithHelp("API key source: auto|env|file|vault"),
				parameters.WithDefault("auto"),
				parameters.WithChoices("auto", "env", "file", "vault"),
			),
			parameters.NewParameterDefinition(
				"api-key-file",
				parameters.ParameterTypeString,
				parameters.WithHelp("Path to API key file (default ~/.openai_api_key)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"api-key-vault-path",
				parameters.ParameterTypeString,
				parameters.WithHelp("Vault KV path holding an api_key field"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"base-url",
				parameters.ParameterTypeString,
				parameters.WithHelp("Override the OpenAI API base URL"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"model",
				parameters.ParameterTypeString,
				parameters.WithHelp("Chat completion model (default gpt-4)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"requests-per-minute",
				parameters.ParameterTypeInteger,
				parameters.WithHelp("Client-side rate limit for API calls (default 60)"),
				parameters.WithDefault(0),
			),
		),
	)
}

// AddOpenAILayerToCommand attaches the layer to a Glazed command description.
func AddOpenAILayerToCommand(c glzcms.Command) (glzcms.Command, error) {
	l, err := NewOpenAILayer()
	if err != nil {
		return nil, err
	}
	c.Description().Layers.Set(OpenAILayerSlug, l)
	return c, nil
}

// GetOpenAISettings returns parsed OpenAI settings from the ParsedLayers.
func GetOpenAISettings(parsed *glzlayers.ParsedLayers) (*OpenAISettings, error) {
	var s OpenAISettings
	if err := parsed.InitializeStruct(OpenAILayerSlug, &s); err != nil {
		return nil, fmt.Errorf("failed to parse openai settings: %w", err)
	}
	return &s, nil
}

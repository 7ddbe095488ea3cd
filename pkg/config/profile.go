package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/testcase-formatter/pkg/prompt"
)

// Profile is the YAML-configurable shape of a formatting run. Zero values
// fall back to defaults, so a profile file only needs to name what it
// changes.
type Profile struct {
	Model             string  `yaml:"model,omitempty"`
	BatchSize         int     `yaml:"batch_size,omitempty"`
	MaxBatchTokens    int     `yaml:"max_batch_tokens,omitempty"`
	RequestsPerMinute int     `yaml:"requests_per_minute,omitempty"`
	BatchDelaySeconds float64 `yaml:"batch_delay_seconds,omitempty"`
	MaxAttempts       int     `yaml:"max_attempts,omitempty"`

	OutputDir string `yaml:"output_dir,omitempty"`

	// Azure DevOps work item fields stamped onto every formatted case.
	AreaPath      string `yaml:"area_path,omitempty"`
	IterationPath string `yaml:"iteration_path,omitempty"`
	AssignedTo    string `yaml:"assigned_to,omitempty"`

	// TemplateFile overrides the built-in prompt template.
	TemplateFile string `yaml:"template_file,omitempty"`

	DefaultApplicationType string           `yaml:"default_application_type,omitempty"`
	ApplicationTypes       []prompt.AppType `yaml:"application_types,omitempty"`
}

// Default returns the profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Model:             "gpt-4",
		BatchSize:         5,
		MaxBatchTokens:    30000,
		RequestsPerMinute: 60,
		BatchDelaySeconds: 2,
		MaxAttempts:       3,
		OutputDir:         "formatted",
	}
}

// Load reads a YAML profile and overlays it on the defaults.
func Load(path string) (*Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

func (p *Profile) validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", p.BatchSize)
	}
	if p.MaxBatchTokens <= 0 {
		return fmt.Errorf("max_batch_tokens must be positive, got %d", p.MaxBatchTokens)
	}
	if p.BatchDelaySeconds < 0 {
		return fmt.Errorf("batch_delay_seconds must not be negative, got %v", p.BatchDelaySeconds)
	}
	return nil
}

// AppTypes returns the default label and classification rules, using the
// built-in defaults for anything the profile does not override.
func (p *Profile) AppTypes() (string, []prompt.AppType) {
	label, types := prompt.DefaultAppTypes()
	if p.DefaultApplicationType != "" {
		label = p.DefaultApplicationType
	}
	if len(p.ApplicationTypes) > 0 {
		types = p.ApplicationTypes
	}
	return label, types
}

// Template returns the prompt template text, loading the override file when
// one is configured.
func (p *Profile) Template() (string, error) {
	if p.TemplateFile == "" {
		return prompt.DefaultTemplate, nil
	}
	data, err := os.ReadFile(p.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", p.TemplateFile, err)
	}
	return string(data), nil
}

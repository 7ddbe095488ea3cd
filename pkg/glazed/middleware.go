package glazed

import (
	"fmt"
	"os"
	"strings"

	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	gmiddlewares "github.com/go-go-golems/glazed/pkg/cmds/middlewares"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"gopkg.in/yaml.v3"
)

// UpdateFromProfile loads key-value pairs from a YAML profile file and
// updates matching parameters across all layers. A parameter is updated when
// the profile holds a key with the same name, with snake_case profile keys
// matching kebab-case parameter names.
//
// Typical usage:
//
//	middlewares.ExecuteMiddlewares(layers, parsed,
//	    glazed.UpdateFromProfile(profilePath,
//	        parameters.WithParseStepSource("profile"),
//	    ),
//	    middlewares.SetFromDefaults(parameters.WithParseStepSource("defaults")),
//	)
//
// A missing or empty path is a no-op so commands work without a profile.
func UpdateFromProfile(path string, options ...parameters.ParseStepOption) gmiddlewares.Middleware {
	return func(next gmiddlewares.HandlerFunc) gmiddlewares.HandlerFunc {
		return func(layers *glayers.ParameterLayers, parsed *glayers.ParsedLayers) error {
			// Run the rest of the chain first; then apply profile values.
			if err := next(layers, parsed); err != nil {
				return err
			}

			effectivePath := strings.TrimSpace(path)
			if effectivePath == "" {
				return nil
			}

			data, err := os.ReadFile(effectivePath)
			if err != nil {
				return fmt.Errorf("failed to read profile %s: %w", effectivePath, err)
			}
			var values map[string]interface{}
			if err := yaml.Unmarshal(data, &values); err != nil {
				return fmt.Errorf("failed to parse profile %s: %w", effectivePath, err)
			}

			// Profile files use snake_case; flags use kebab-case.
			normalized := make(map[string]interface{}, len(values))
			for k, v := range values {
				normalized[strings.ReplaceAll(k, "_", "-")] = v
			}

			// Update matching parameters across all layers
			return layers.ForEachE(func(_ string, l glayers.ParameterLayer) error {
				parsedLayer := parsed.GetOrCreate(l)
				pds := l.GetParameterDefinitions()
				return pds.ForEachE(func(pd *parameters.ParameterDefinition) error {
					if v, ok := normalized[pd.Name]; ok {
						if err := parsedLayer.Parameters.UpdateValue(pd.Name, pd, v, options...); err != nil {
							return err
						}
					}
					return nil
				})
			})
		}
	}
}

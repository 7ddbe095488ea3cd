package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// TestCaseSchema is the fixed shape every formatted response must satisfy
// before it is persisted.
const TestCaseSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["type", "title", "description", "automation_status", "test_steps", "additional_fields"],
		"properties": {
			"type": {"type": "string"},
			"title": {"type": "string"},
			"description": {"type": "string"},
			"automation_status": {"type": "string"},
			"test_steps": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["action", "expected"],
					"properties": {
						"action": {"type": "string"},
						"expected": {"type": "string"}
					}
				}
			},
			"additional_fields": {
				"type": "object",
				"required": ["Microsoft.VSTS.Common.Priority", "System.Tags"],
				"properties": {
					"Microsoft.VSTS.Common.Priority": {"type": "integer"},
					"System.Tags": {"type": "string"},
					"System.AreaPath": {"type": "string"},
					"System.IterationPath": {"type": "string"},
					"System.AssignedTo": {"type": "string"}
				}
			}
		}
	}
}`

// TestStep is one formatted step of a test case.
type TestStep struct {
	Action   string `json:"action"`
	Expected string `json:"expected"`
}

// AdditionalFields carries the Azure DevOps work item fields attached to a
// test case.
type AdditionalFields struct {
	Priority      int    `json:"Microsoft.VSTS.Common.Priority"`
	Tags          string `json:"System.Tags"`
	AreaPath      string `json:"System.AreaPath,omitempty"`
	IterationPath string `json:"System.IterationPath,omitempty"`
	AssignedTo    string `json:"System.AssignedTo,omitempty"`
}

// TestCase is one validated, formatted test case as returned by the model.
type TestCase struct {
	Type             string           `json:"type"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	AutomationStatus string           `json:"automation_status"`
	TestSteps        []TestStep       `json:"test_steps"`
	AdditionalFields AdditionalFields `json:"additional_fields"`
}

// Validate checks data against TestCaseSchema.
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(TestCaseSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}
	if !result.Valid() {
		var errMsg string
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", desc)
		}
		return fmt.Errorf("schema validation failed:\n%s", errMsg)
	}
	return nil
}

// Decode validates data and unmarshals it into typed test cases. It fails
// closed: nothing is returned unless the document conforms.
func Decode(data []byte) ([]TestCase, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var cases []TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal test cases: %w", err)
	}
	return cases, nil
}

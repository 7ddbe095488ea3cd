package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-go-golems/testcase-formatter/pkg/extract"
)

// AppType classifies a test case into one application label based on
// marker substrings found in the summary or description.
type AppType struct {
	Label              string   `yaml:"label"`
	SummaryMarkers     []string `yaml:"summary_markers"`
	DescriptionMarkers []string `yaml:"description_markers"`
}

// DefaultAppTypes matches the two application labels the formatter was
// originally built around.
func DefaultAppTypes() (defaultLabel string, types []AppType) {
	return "UNO (desktop application)", []AppType{
		{
			Label:              "OSC (Online Sales Center, web application)",
			SummaryMarkers:     []string{"OSC"},
			DescriptionMarkers: []string{"Online Sales Center"},
		},
	}
}

// ClassifyAppType returns the label of the first AppType whose markers
// appear in the record, or defaultLabel.
func ClassifyAppType(rec extract.Record, defaultLabel string, types []AppType) string {
	for _, at := range types {
		for _, m := range at.SummaryMarkers {
			if m != "" && strings.Contains(rec.Summary, m) {
				return at.Label
			}
		}
		for _, m := range at.DescriptionMarkers {
			if m != "" && strings.Contains(rec.Description, m) {
				return at.Label
			}
		}
	}
	return defaultLabel
}

// DefaultTemplate is the instruction sent to the model for each test case.
// It requests a fixed JSON shape; the response is validated against the
// matching schema before anything is persisted.
const DefaultTemplate = `I have a test case for {{ .ApplicationType }} that needs to be reformatted according to a specific template schema.

Test Case Key: {{ .Key }}

Test Case Summary: {{ .Summary }}

Test Case Description: {{ .Description }}

Test Case Steps:
{{ .StepsText }}
Please rewrite this test case to be grammatically correct, well-formatted, and clearly organized.
You must strictly adhere to the following output JSON template schema:

` + "```json" + `
[
  {
    "type": "Test Case",
    "title": "Improved and professional test case title",
    "description": "<div><p><strong>Test Objective:</strong> Clear statement of what this test is verifying</p><p><strong>Test Environment:</strong> The environment where this test should be performed</p><p><strong>Pre-requisites:</strong></p><ul><li>Required setup step 1</li><li>Required setup step 2</li></ul><p><strong>Expected Behavior:</strong> Any relevant expectations</p></div>",
    "automation_status": "Not Automated",
    "test_steps": [
      {
        "action": "Clear, well-written action step",
        "expected": "Clear expected result"
      }
    ],
    "additional_fields": {
      "Microsoft.VSTS.Common.Priority": {{ .PriorityValue }},
      "System.Tags": "Relevant; Tags; Based; On; Content",
      "System.AreaPath": "{{ .AreaPath }}",
      "System.IterationPath": "{{ .IterationPath }}",
      "System.AssignedTo": "{{ .AssignedTo }}"
    }
  }
]
` + "```" + `

Important guidelines:
1. The "description" must use proper HTML format with div, p, strong, and ul/li tags exactly as shown
2. Make the title professional and concise
3. Identify test objective clearly from the context
4. Include meaningful tags related to the test case
5. Maintain all steps in the proper order but improve their clarity
6. Ensure all steps have both an action and an expected result
7. The JSON must be perfectly valid, with no syntax errors

Only return the valid JSON with no other text or explanation.
`

// SystemMessage primes the model to emit schema-conforming JSON only.
const SystemMessage = "You are a QA specialist who converts test cases into a standardized JSON format. Your output must be valid JSON that strictly follows the required schema with no additional text."

// Metadata carries the Azure DevOps fields injected into every rendered
// prompt.
type Metadata struct {
	AreaPath      string
	IterationPath string
	AssignedTo    string
}

// Builder renders records into prompts and prices them with a token
// counter.
type Builder struct {
	tmpl         *template.Template
	counter      *Counter
	meta         Metadata
	defaultLabel string
	appTypes     []AppType
}

type templateData struct {
	ApplicationType string
	Key             string
	Summary         string
	Description     string
	StepsText       string
	PriorityValue   int
	AreaPath        string
	IterationPath   string
	AssignedTo      string
}

// NewBuilder parses templateText (DefaultTemplate when empty) and wires
// the classification rules and metadata.
func NewBuilder(templateText string, counter *Counter, meta Metadata, defaultLabel string, appTypes []AppType) (*Builder, error) {
	if templateText == "" {
		templateText = DefaultTemplate
	}
	if defaultLabel == "" {
		defaultLabel, appTypes = DefaultAppTypes()
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Builder{
		tmpl:         tmpl,
		counter:      counter,
		meta:         meta,
		defaultLabel: defaultLabel,
		appTypes:     appTypes,
	}, nil
}

// StepsText renders the step list into the prompt's step block.
func StepsText(steps []extract.Step) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "Step %d: %s\nExpected: %s\n\n", i+1, s.Action, s.Expected)
	}
	return b.String()
}

// Render produces the prompt text and its token cost for one record.
func (b *Builder) Render(rec extract.Record, steps []extract.Step) (string, int, error) {
	data := templateData{
		ApplicationType: ClassifyAppType(rec, b.defaultLabel, b.appTypes),
		Key:             rec.Key,
		Summary:         rec.Summary,
		Description:     rec.Description,
		StepsText:       StepsText(steps),
		PriorityValue:   rec.PriorityValue,
		AreaPath:        b.meta.AreaPath,
		IterationPath:   b.meta.IterationPath,
		AssignedTo:      b.meta.AssignedTo,
	}
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", 0, fmt.Errorf("failed to render prompt: %w", err)
	}
	text := buf.String()
	return text, b.counter.Count(text), nil
}

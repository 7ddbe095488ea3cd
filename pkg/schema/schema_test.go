package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `[
  {
    "type": "Test Case",
    "title": "Login flow",
    "description": "<div><p><strong>Test Objective:</strong> login</p></div>",
    "automation_status": "Not Automated",
    "test_steps": [
      {"action": "Open the login page", "expected": "Form is shown"}
    ],
    "additional_fields": {
      "Microsoft.VSTS.Common.Priority": 1,
      "System.Tags": "UNO; Login",
      "System.AreaPath": "Inficore"
    }
  }
]`

func TestDecode_Valid(t *testing.T) {
	cases, err := Decode([]byte(validDoc))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "Test Case", cases[0].Type)
	assert.Equal(t, 1, cases[0].AdditionalFields.Priority)
	assert.Equal(t, "Inficore", cases[0].AdditionalFields.AreaPath)
	require.Len(t, cases[0].TestSteps, 1)
	assert.Equal(t, "Form is shown", cases[0].TestSteps[0].Expected)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	doc := `[{"type": "Test Case", "title": "x"}]`
	err := Validate([]byte(doc))
	assert.Error(t, err)
}

func TestValidate_PriorityMustBeInteger(t *testing.T) {
	doc := `[
	  {
	    "type": "Test Case",
	    "title": "x",
	    "description": "d",
	    "automation_status": "Not Automated",
	    "test_steps": [],
	    "additional_fields": {
	      "Microsoft.VSTS.Common.Priority": "high",
	      "System.Tags": "t"
	    }
	  }
	]`
	assert.Error(t, Validate([]byte(doc)))
}

func TestValidate_ObjectInsteadOfArray(t *testing.T) {
	assert.Error(t, Validate([]byte(`{"type": "Test Case"}`)))
}

func TestDecode_RoundTrip(t *testing.T) {
	cases, err := Decode([]byte(validDoc))
	require.NoError(t, err)

	// A persisted artifact must re-validate against the same schema.
	out, err := json.MarshalIndent(cases, "", "  ")
	require.NoError(t, err)
	again, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, cases, again)
}

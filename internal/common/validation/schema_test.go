package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestValidateInput(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"entity": {Type: "string", MinLength: intPtr(1)},
			"method": {Type: "string", MinLength: intPtr(1)},
			"limit":  {Type: "integer"},
			"kind":   {Type: "string", Enum: []string{"a", "b"}},
		},
		Required:             []string{"entity", "method"},
		AdditionalProperties: true,
	}

	tests := []struct {
		name      string
		input     map[string]interface{}
		valid     bool
		errorsFor string
	}{
		{
			name:  "valid",
			input: map[string]interface{}{"entity": "incidents", "method": "find", "limit": float64(10), "other": 1},
			valid: true,
		},
		{
			name:      "missing method",
			input:     map[string]interface{}{"entity": "incidents"},
			errorsFor: "method",
		},
		{
			name:      "null counts as missing",
			input:     map[string]interface{}{"entity": nil, "method": "find"},
			errorsFor: "entity",
		},
		{
			name:      "empty entity",
			input:     map[string]interface{}{"entity": "", "method": "find"},
			errorsFor: "entity",
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"entity": 5, "method": "find"},
			errorsFor: "entity",
		},
		{
			name:      "fractional integer",
			input:     map[string]interface{}{"entity": "incidents", "method": "find", "limit": 2.5},
			errorsFor: "limit",
		},
		{
			name:      "enum",
			input:     map[string]interface{}{"entity": "incidents", "method": "find", "kind": "c"},
			errorsFor: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, schema)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.errorsFor != "" {
				assert.True(t, result.HasErrors(tt.errorsFor), result.GetErrorMessages())
			}
		})
	}
}

func TestValidateInput_ExtraFields(t *testing.T) {
	schema := JSONSchema{Properties: map[string]Property{"a": {Type: "string"}}}
	result := ValidateInput(map[string]interface{}{"a": "x", "b": "y"}, schema)
	assert.False(t, result.Valid)
	assert.Equal(t, "EXTRA_FIELD", result.Errors[0].Code)
}

func TestValidateJSONSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
		},
	}

	result, err := ValidateJSONSchema(map[string]interface{}{"title": "Disk full"}, schema)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateJSONSchema(map[string]interface{}{"urgency": "high"}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "REQUIRED", result.Errors[0].Code)
}

func TestValidateJSONSchema_BadSchema(t *testing.T) {
	_, err := ValidateJSONSchema(map[string]interface{}{}, map[string]interface{}{"type": 12})
	assert.Error(t, err)
}

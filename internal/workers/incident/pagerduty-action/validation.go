package pagerdutyaction

import "pagerduty-workers/internal/common/validation"

// GetInputSchema describes the job variables. Method-specific params are
// checked by the dispatcher, so extra variables are allowed.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"entity", "method"},
		Properties: map[string]validation.Property{
			"entity": {
				Type:        "string",
				Description: "PagerDuty collection name, e.g. incidents",
				MinLength:   intPtr(1),
			},
			"method": {
				Type:        "string",
				Description: "find, fetch, delete, create or a per-object method",
				MinLength:   intPtr(1),
			},
			"params": {
				Type:        "object",
				Description: "Action parameters; when absent the remaining variables are used",
			},
		},
		AdditionalProperties: true,
	}
}

func intPtr(i int) *int {
	return &i
}

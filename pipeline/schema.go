package pipeline

import (
	"fitplan/inference"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Wire-level schema constraints sent as response_format to the model. These
// steer generation; the binding checks are the Validate methods on the
// decoded types.

func stringArray(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: desc,
	}
}

// GuidanceSchemaSpec constrains stage one to the two rule lists.
func GuidanceSchemaSpec() *inference.SchemaSpec {
	return &inference.SchemaSpec{
		Name:   "diet_exercise_guidance",
		Strict: true,
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"diet_rules":     stringArray("2-6 short diet constraints"),
				"exercise_rules": stringArray("2-6 short exercise constraints"),
			},
			Required: []string{"diet_rules", "exercise_rules"},
		},
	}
}

func dietDaySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "exactly 3 diet items",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"when": {Type: "string"},
				"what": {Type: "string", Description: "at most 120 characters"},
				"why":  {Type: "string", Description: "at most 80 characters"},
			},
			Required: []string{"when", "what", "why"},
		},
	}
}

// PlanSchemaSpec constrains stage two to the full weekly plan shape.
func PlanSchemaSpec() *inference.SchemaSpec {
	dietProps := make(map[string]*jsonschema.Schema, 7)
	dayEnum := make([]any, 0, 7)
	for _, day := range days {
		dietProps[day] = dietDaySchema()
		dayEnum = append(dayEnum, day)
	}

	return &inference.SchemaSpec{
		Name:   "diet_exercise_plan_only",
		Strict: true,
		Schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"diet": {
					Type:       "object",
					Properties: dietProps,
					Required:   append([]string{}, days...),
				},
				"exercise": {
					Type:        "array",
					Description: "1-7 sessions",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"day":               {Type: "string", Enum: dayEnum},
							"when":              {Type: "string"},
							"goal":              {Type: "string"},
							"what":              {Type: "string"},
							"duration_minutes":  {Type: "number"},
							"intensity_or_rest": {Type: "string"},
						},
						Required: []string{"day", "when", "goal", "what", "duration_minutes", "intensity_or_rest"},
					},
				},
			},
			Required: []string{"diet", "exercise"},
		},
	}
}

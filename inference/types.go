// Package inference wraps a single remote model call behind a timeout race.
// Retry policy lives one layer up, in the pipeline stages.
package inference

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Message is one chat message of an inference request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SchemaSpec names a JSON-schema constraint for structured output.
type SchemaSpec struct {
	Name   string             `json:"name"`
	Strict bool               `json:"strict"`
	Schema *jsonschema.Schema `json:"schema"`
}

// ResponseFormat asks the backend to constrain output to a JSON schema.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *SchemaSpec `json:"json_schema,omitempty"`
}

// Request is the backend-agnostic inference request.
type Request struct {
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
}

// Runner executes one remote inference call. The returned value is either a
// chat-completion envelope or a raw JSON value matching the requested schema;
// latency is unbounded absent the Gateway's timeout.
type Runner interface {
	Run(ctx context.Context, modelID string, req Request) (json.RawMessage, error)
}

// NewJSONSchemaFormat builds the response_format constraint used by both
// pipeline stages.
func NewJSONSchemaFormat(spec *SchemaSpec) *ResponseFormat {
	return &ResponseFormat{Type: "json_schema", JSONSchema: spec}
}

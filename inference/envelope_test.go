package inference

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncated(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"length finish reason", `{"choices":[{"message":{"content":"{"},"finish_reason":"length"}]}`, true},
		{"stop finish reason", `{"choices":[{"message":{"content":"{}"},"finish_reason":"stop"}]}`, false},
		{"no finish reason", `{"choices":[{"message":{"content":"{}"}}]}`, false},
		{"empty choices", `{"choices":[]}`, false},
		{"raw value", `{"diet_rules":["a","b"]}`, false},
		{"not json", `oops`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncated(json.RawMessage(tt.raw)))
		})
	}
}

func TestUsageOf(t *testing.T) {
	raw := json.RawMessage(`{"choices":[{"message":{"content":"{}"}}],"usage":{"prompt_tokens":120,"completion_tokens":64}}`)
	usage, ok := UsageOf(raw)
	assert.True(t, ok)
	assert.Equal(t, 120, usage.PromptTokens)
	assert.Equal(t, 64, usage.CompletionTokens)

	_, ok = UsageOf(json.RawMessage(`{"diet_rules":[]}`))
	assert.False(t, ok)
}

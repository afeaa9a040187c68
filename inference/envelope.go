package inference

import "encoding/json"

// FinishReasonLength is the envelope marker for a token-limit truncation.
const FinishReasonLength = "length"

// Usage reports the token accounting of a completion, when present.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type envelopeProbe struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Truncated reports whether raw is a chat-completion envelope whose first
// choice was cut off by the token limit. A non-envelope value is never
// truncated.
func Truncated(raw json.RawMessage) bool {
	var probe envelopeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Choices) > 0 && probe.Choices[0].FinishReason == FinishReasonLength
}

// UsageOf extracts the token usage from a completion envelope, if any.
func UsageOf(raw json.RawMessage) (Usage, bool) {
	var probe envelopeProbe
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Usage == nil {
		return Usage{}, false
	}
	return *probe.Usage, true
}

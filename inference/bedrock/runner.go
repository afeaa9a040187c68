// Package bedrock runs inference through the AWS Bedrock Converse API.
// Converse has no json_schema response format, so the schema constraint is
// injected as a trailing system block and the output is re-shaped into the
// chat-completion envelope the pipeline understands.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fitplan/inference"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type converseClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Runner adapts the Converse API to the inference.Runner contract.
type Runner struct {
	brc converseClient
}

func NewRunner(brc converseClient) *Runner {
	return &Runner{brc: brc}
}

func (r *Runner) Run(ctx context.Context, modelID string, req inference.Request) (json.RawMessage, error) {
	var sys []types.SystemContentBlock
	var msgs []types.Message

	for _, m := range req.Messages {
		if m.Role == "system" {
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		msgs = append(msgs, types.Message{
			Role:    types.ConversationRole(m.Role),
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	if req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil {
		schemaJSON, err := json.Marshal(req.ResponseFormat.JSONSchema.Schema)
		if err != nil {
			return nil, fmt.Errorf("bedrock: failed to marshal response schema: %w", err)
		}
		sys = append(sys, &types.SystemContentBlockMemberText{
			Value: "Respond with a single JSON object matching this JSON schema exactly, with no surrounding text:\n" + string(schemaJSON),
		})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.MaxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}

	out, err := r.brc.Converse(ctx, in)
	if err != nil {
		return nil, err
	}

	slog.Info("BEDROCK: Converse succeeded",
		"stop_reason", out.StopReason,
		"input_tokens", aws.ToInt32(out.Usage.InputTokens),
		"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
	)

	text, err := textFromOutput(out)
	if err != nil {
		return nil, err
	}

	finishReason := ""
	if out.StopReason == types.StopReasonMaxTokens {
		finishReason = inference.FinishReasonLength
	}

	return envelope(text, finishReason, out)
}

// envelope re-shapes a Converse result into a chat-completion envelope so
// truncation detection and content extraction are backend-uniform.
func envelope(text, finishReason string, out *bedrockruntime.ConverseOutput) (json.RawMessage, error) {
	payload := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"content": text},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     aws.ToInt32(out.Usage.InputTokens),
			"completion_tokens": aws.ToInt32(out.Usage.OutputTokens),
		},
	}
	return json.Marshal(payload)
}

func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock: unexpected output type %T", out.Output)
	}
	var text string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	if text == "" {
		return "", fmt.Errorf("bedrock: no text content in converse output")
	}
	return text, nil
}

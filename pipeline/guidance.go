package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fitplan"
	"fitplan/inference"
)

// ErrTruncated marks a completion cut off by the token limit. Retrying would
// not help; more tokens would.
var ErrTruncated = errors.New("response truncated by token limit")

// GuidanceStage produces the constraint bullets the plan must follow.
// Guidance failure aborts the whole pipeline: the plan prompt is defined to
// condition on guidance, and silently proceeding without it would change the
// contract between requests.
type GuidanceStage struct {
	gateway   *inference.Gateway
	maxTokens int
	timeout   time.Duration
	retries   int
	stageLog  fitplan.StageLogger
}

// NewGuidanceStage configures the stage. retries is the total number of
// attempts permitted.
func NewGuidanceStage(gw *inference.Gateway, maxTokens int, timeout time.Duration, retries int, log fitplan.StageLogger) *GuidanceStage {
	if log == nil {
		log = fitplan.NewNoOpStageLogger()
	}
	return &GuidanceStage{
		gateway:   gw,
		maxTokens: maxTokens,
		timeout:   timeout,
		retries:   retries,
		stageLog:  log,
	}
}

// Generate runs up to retries attempts: invoke, reconcile, validate. Schema
// and gateway failures are retained and retried; truncation fails
// immediately. The bounded loop carries the last failure in a local rather
// than re-thrown errors.
func (s *GuidanceStage) Generate(ctx context.Context, payload fitplan.UserPayload, lang fitplan.Language) (*fitplan.Guidance, error) {
	messages, err := guidanceMessages(payload, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to build guidance prompt: %w", err)
	}

	req := inference.Request{
		Messages:       messages,
		ResponseFormat: inference.NewJSONSchemaFormat(GuidanceSchemaSpec()),
		Temperature:    0,
		MaxTokens:      s.maxTokens,
	}

	var lastErr error

	for attempt := 1; attempt <= s.retries; attempt++ {
		start := time.Now()
		raw, err := s.gateway.Invoke(ctx, req, s.timeout)
		if err != nil {
			lastErr = err
			slog.Error("GUIDANCE: Gateway call failed", "attempt", attempt, "error", err)
			s.logAttempt(ctx, attempt, start, false, err)
			continue
		}

		if inference.Truncated(raw) {
			err := fmt.Errorf("guidance response was truncated (token limit hit), please retry with more tokens: %w", ErrTruncated)
			s.logAttempt(ctx, attempt, start, true, err)
			return nil, err
		}

		guidance, verr := DecodeGuidance(ExtractPayload(raw))
		if verr == nil {
			s.logAttempt(ctx, attempt, start, false, nil)
			slog.Info("GUIDANCE: Validated", "attempt", attempt,
				"diet_rules", len(guidance.DietRules), "exercise_rules", len(guidance.ExerciseRules))
			return guidance, nil
		}

		lastErr = verr
		slog.Warn("GUIDANCE: Schema validation failed", "attempt", attempt, "reason", verr)
		s.logAttempt(ctx, attempt, start, false, verr)
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, fmt.Errorf("guidance generation failed after %d attempts: %w", s.retries, lastErr)
}

func (s *GuidanceStage) logAttempt(ctx context.Context, attempt int, start time.Time, truncated bool, err error) {
	entry := fitplan.AttemptLog{
		Stage:     "guidance",
		Attempt:   attempt,
		Timestamp: start,
		RequestID: fitplan.RequestIDFrom(ctx),
		Duration:  time.Since(start),
		Truncated: truncated,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := s.stageLog.LogAttempt(entry); lerr != nil {
		slog.Error("GUIDANCE: Failed to log attempt", "error", lerr)
	}
}

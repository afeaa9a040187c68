package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitplan"
	"fitplan/inference"
)

// ShapeMismatchError means the model produced structure that reconciliation
// could not salvage. It is expected-but-undesirable, not exceptional: the
// orchestrator maps it to a rejected outcome, never a 5xx.
type ShapeMismatchError struct {
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	return "plan did not match the required shape: " + e.Reason
}

// PlanStage generates the full weekly plan in a single attempt. A whole-plan
// regeneration is expensive, so there is no internal retry.
type PlanStage struct {
	gateway   *inference.Gateway
	maxTokens int
	timeout   time.Duration
	stageLog  fitplan.StageLogger
}

func NewPlanStage(gw *inference.Gateway, maxTokens int, timeout time.Duration, log fitplan.StageLogger) *PlanStage {
	if log == nil {
		log = fitplan.NewNoOpStageLogger()
	}
	return &PlanStage{
		gateway:   gw,
		maxTokens: maxTokens,
		timeout:   timeout,
		stageLog:  log,
	}
}

// Generate invokes the model once with the full plan schema at temperature 0,
// then reconciles and strictly validates the result. Returns the reconciler's
// drop counts for observability regardless of outcome.
func (s *PlanStage) Generate(ctx context.Context, payload PlanPayload, lang fitplan.Language) (*fitplan.WeeklyPlan, DropStats, error) {
	var stats DropStats

	messages, err := planMessages(payload, lang)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to build plan prompt: %w", err)
	}

	req := inference.Request{
		Messages:       messages,
		ResponseFormat: inference.NewJSONSchemaFormat(PlanSchemaSpec()),
		Temperature:    0, // determinism preferred over creativity
		MaxTokens:      s.maxTokens,
	}

	start := time.Now()
	raw, err := s.gateway.Invoke(ctx, req, s.timeout)
	if err != nil {
		s.logAttempt(ctx, start, false, err)
		return nil, stats, err
	}

	if inference.Truncated(raw) {
		err := fmt.Errorf("plan response was truncated (token limit hit), please retry: %w", ErrTruncated)
		s.logAttempt(ctx, start, true, err)
		return nil, stats, err
	}

	normalized, stats := NormalizePlan(ExtractPayload(raw))
	plan, verr := DecodeWeeklyPlan(normalized)
	if verr != nil {
		slog.Warn("PLAN: Schema validation failed", "reason", verr,
			"diet_items_dropped", stats.DietItems, "exercise_items_dropped", stats.ExerciseItems)
		s.logAttempt(ctx, start, false, verr)
		return nil, stats, &ShapeMismatchError{Reason: verr.Error()}
	}

	s.logAttempt(ctx, start, false, nil)
	slog.Info("PLAN: Validated", "exercise_sessions", len(plan.Exercise),
		"diet_items_dropped", stats.DietItems, "exercise_items_dropped", stats.ExerciseItems)
	return plan, stats, nil
}

func (s *PlanStage) logAttempt(ctx context.Context, start time.Time, truncated bool, err error) {
	entry := fitplan.AttemptLog{
		Stage:     "plan",
		Attempt:   1,
		Timestamp: start,
		RequestID: fitplan.RequestIDFrom(ctx),
		Duration:  time.Since(start),
		Truncated: truncated,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := s.stageLog.LogAttempt(entry); lerr != nil {
		slog.Error("PLAN: Failed to log attempt", "error", lerr)
	}
}

// Package pipeline sequences validation, deterministic computation, the two
// inference stages, and final assembly into exactly one Outcome per request.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fitplan"
	"fitplan/inference"
)

// Result pairs the externally visible Outcome with the HTTP status it must
// travel under.
type Result struct {
	Outcome    fitplan.Outcome
	HTTPStatus int
}

// Handler is what the transport layer calls per request.
type Handler interface {
	Handle(ctx context.Context, body []byte) Result
}

// Orchestrator walks the request through
// Validating -> CheckingMedicalGate -> ComputingNumbers -> RequestingGuidance
// -> RequestingPlan -> AssemblingOutput, with an early exit to one of the
// three terminal shapes from every state.
type Orchestrator struct {
	guidance *GuidanceStage
	plan     *PlanStage
}

func NewOrchestrator(guidance *GuidanceStage, plan *PlanStage) *Orchestrator {
	return &Orchestrator{guidance: guidance, plan: plan}
}

func rejected(status int, reason string) Result {
	return Result{
		Outcome:    fitplan.Outcome{Status: fitplan.StatusRejected, Reason: reason},
		HTTPStatus: status,
	}
}

func errored(status int, reason string) Result {
	return Result{
		Outcome:    fitplan.Outcome{Status: fitplan.StatusError, Reason: reason},
		HTTPStatus: status,
	}
}

// Handle processes one request body end to end. It never panics outward and
// never returns anything but one of the three Outcome shapes.
func (o *Orchestrator) Handle(ctx context.Context, body []byte) Result {
	reqID := fitplan.RequestIDFrom(ctx)

	// Validating
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Info("ORCHESTRATOR: Malformed JSON body", "request_id", reqID, "error", err)
		return rejected(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	profile, err := fitplan.ParseProfile(raw)
	if err != nil {
		slog.Info("ORCHESTRATOR: Profile validation failed", "request_id", reqID, "reason", err)
		return rejected(http.StatusBadRequest, err.Error())
	}

	// CheckingMedicalGate: hard safety gate, resolved before any remote call.
	if profile.HasMedicalCondition() {
		slog.Info("ORCHESTRATOR: Medical gate triggered", "request_id", reqID, "language", profile.Language)
		return rejected(http.StatusOK, MedicalGateMessage(profile.Language))
	}

	// ComputingNumbers
	numbers := fitplan.ComputeNumbers(profile)
	payload := fitplan.NewUserPayload(profile, numbers)
	slog.Info("ORCHESTRATOR: Computed targets", "request_id", reqID,
		"bmi", numbers.BMI, "bmr", numbers.BMR, "tdee", numbers.TDEE, "daily_calories", numbers.DailyCalories)

	// RequestingGuidance
	guidance, err := o.guidance.Generate(ctx, payload, profile.Language)
	if err != nil {
		return guidanceFailure(err, reqID)
	}

	// RequestingPlan: strictly sequential, the plan prompt conditions on the
	// validated guidance.
	plan, _, err := o.plan.Generate(ctx, PlanPayload{UserPayload: payload, Guidance: *guidance}, profile.Language)
	if err != nil {
		return planFailure(err, reqID)
	}

	// AssemblingOutput
	return assemble(plan, guidance, reqID)
}

// guidanceFailure maps an exhausted guidance stage to its terminal error.
// There is no degraded skip-guidance path.
func guidanceFailure(err error, reqID string) Result {
	slog.Error("ORCHESTRATOR: Guidance stage failed", "request_id", reqID, "error", err)
	var timeout *inference.TimeoutError
	if errors.As(err, &timeout) {
		return errored(http.StatusGatewayTimeout, err.Error())
	}
	return errored(http.StatusBadGateway, err.Error())
}

// planFailure maps the plan stage's failure modes: timeout 504, truncation
// and transport 502, shape mismatch a tolerant 200 rejection.
func planFailure(err error, reqID string) Result {
	var shape *ShapeMismatchError
	if errors.As(err, &shape) {
		slog.Warn("ORCHESTRATOR: Plan shape mismatch", "request_id", reqID, "reason", shape.Reason)
		return rejected(http.StatusOK, shape.Error())
	}

	slog.Error("ORCHESTRATOR: Plan stage failed", "request_id", reqID, "error", err)
	var timeout *inference.TimeoutError
	if errors.As(err, &timeout) {
		return errored(http.StatusGatewayTimeout, err.Error())
	}
	return errored(http.StatusBadGateway, err.Error())
}

// assemble builds the success outcome and re-validates it as a last safety
// net; a violation degrades to rejected rather than emitting an invalid
// shape.
func assemble(plan *fitplan.WeeklyPlan, guidance *fitplan.Guidance, reqID string) Result {
	outcome := fitplan.Outcome{
		Status:   fitplan.StatusSuccess,
		Plans:    plan,
		Guidance: guidance,
	}
	if err := outcome.Validate(); err != nil {
		slog.Error("ORCHESTRATOR: Assembled outcome failed self-check", "request_id", reqID, "error", err)
		return rejected(http.StatusOK, "internal consistency check failed: "+err.Error())
	}
	slog.Info("ORCHESTRATOR: Success", "request_id", reqID)
	return Result{Outcome: outcome, HTTPStatus: http.StatusOK}
}

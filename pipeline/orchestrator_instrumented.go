package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fitplan"
	"fitplan/inference"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedOrchestrator is the Orchestrator with OpenTelemetry metrics and
// tracing. Behavior is identical; instruments are fire-and-forget and never
// influence control flow.
type InstrumentedOrchestrator struct {
	guidance *GuidanceStage
	plan     *PlanStage
	tracer   trace.Tracer
	meter    metric.Meter
}

func NewInstrumentedOrchestrator(guidance *GuidanceStage, plan *PlanStage, tracer trace.Tracer, meter metric.Meter) *InstrumentedOrchestrator {
	return &InstrumentedOrchestrator{
		guidance: guidance,
		plan:     plan,
		tracer:   tracer,
		meter:    meter,
	}
}

// Handle mirrors Orchestrator.Handle with full instrumentation.
func (o *InstrumentedOrchestrator) Handle(ctx context.Context, body []byte) Result {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Handle")
	defer span.End()

	requestsCounter, _ := o.meter.Int64Counter("plan_requests_total",
		metric.WithDescription("Total plan requests received"))
	outcomesCounter, _ := o.meter.Int64Counter("plan_outcomes_total",
		metric.WithDescription("Total outcomes produced, by status"))
	medicalGateCounter, _ := o.meter.Int64Counter("medical_gate_total",
		metric.WithDescription("Requests blocked by the medical-condition gate"))
	dietDropsCounter, _ := o.meter.Int64Counter("reconciler_diet_items_dropped_total",
		metric.WithDescription("Diet items silently dropped during reconciliation"))
	exerciseDropsCounter, _ := o.meter.Int64Counter("reconciler_exercise_items_dropped_total",
		metric.WithDescription("Exercise items silently dropped during reconciliation"))
	goalsCounter, _ := o.meter.Int64Counter("goals_total",
		metric.WithDescription("Requests by goal"))
	stageDurationHist, _ := o.meter.Float64Histogram("stage_duration_seconds",
		metric.WithDescription("Duration of individual pipeline stages in seconds"))
	bodySizeGauge, _ := o.meter.Int64Gauge("request_body_bytes",
		metric.WithDescription("Size of the request body in bytes"))

	requestsCounter.Add(ctx, 1)
	bodySizeGauge.Record(ctx, int64(len(body)))
	reqID := fitplan.RequestIDFrom(ctx)

	finish := func(res Result) Result {
		outcomesCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(res.Outcome.Status)),
		))
		span.SetAttributes(
			attribute.String("outcome.status", string(res.Outcome.Status)),
			attribute.Int("http.status", res.HTTPStatus),
		)
		if res.Outcome.Status == fitplan.StatusError {
			span.SetStatus(codes.Error, res.Outcome.Reason)
		}
		return res
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Info("ORCHESTRATOR: Malformed JSON body", "request_id", reqID, "error", err)
		return finish(rejected(http.StatusBadRequest, "invalid JSON body: "+err.Error()))
	}
	profile, err := fitplan.ParseProfile(raw)
	if err != nil {
		slog.Info("ORCHESTRATOR: Profile validation failed", "request_id", reqID, "reason", err)
		return finish(rejected(http.StatusBadRequest, err.Error()))
	}
	goalsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("goal", string(profile.Goal))))

	if profile.HasMedicalCondition() {
		medicalGateCounter.Add(ctx, 1)
		slog.Info("ORCHESTRATOR: Medical gate triggered", "request_id", reqID, "language", profile.Language)
		return finish(rejected(http.StatusOK, MedicalGateMessage(profile.Language)))
	}

	numbers := fitplan.ComputeNumbers(profile)
	payload := fitplan.NewUserPayload(profile, numbers)

	guidanceStart := time.Now()
	guidance, err := o.guidance.Generate(ctx, payload, profile.Language)
	stageDurationHist.Record(ctx, time.Since(guidanceStart).Seconds(),
		metric.WithAttributes(attribute.String("stage", "guidance")))
	if err != nil {
		span.RecordError(err)
		return finish(guidanceFailure(err, reqID))
	}

	planStart := time.Now()
	plan, stats, err := o.plan.Generate(ctx, PlanPayload{UserPayload: payload, Guidance: *guidance}, profile.Language)
	stageDurationHist.Record(ctx, time.Since(planStart).Seconds(),
		metric.WithAttributes(attribute.String("stage", "plan")))
	dietDropsCounter.Add(ctx, int64(stats.DietItems))
	exerciseDropsCounter.Add(ctx, int64(stats.ExerciseItems))
	if err != nil {
		var timeout *inference.TimeoutError
		if errors.As(err, &timeout) {
			span.SetAttributes(attribute.Bool("plan.timeout", true))
		}
		span.RecordError(err)
		return finish(planFailure(err, reqID))
	}

	return finish(assemble(plan, guidance, reqID))
}

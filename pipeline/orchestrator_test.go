package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitplan"
	"fitplan/inference"
	"fitplan/inference/mock"
)

func newTestOrchestrator(runner inference.Runner) *Orchestrator {
	gw := inference.NewGateway(runner, "test-model")
	return NewOrchestrator(
		NewGuidanceStage(gw, 800, time.Second, 2, nil),
		NewPlanStage(gw, 2600, time.Second, nil),
	)
}

func validBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	body := map[string]any{
		"heightCm": 178, "weightKg": 76.5, "age": 29,
		"sex": "male", "goal": "build_muscle", "activity": "medium",
		"practicePlace": "gym", "language": "en",
	}
	for k, v := range overrides {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

func TestOrchestrator_Success(t *testing.T) {
	runner := mock.NewRunner(mock.ValidGuidance(), mock.ValidWeeklyPlan())
	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, nil))

	require.Equal(t, http.StatusOK, res.HTTPStatus)
	require.Equal(t, fitplan.StatusSuccess, res.Outcome.Status)
	require.NotNil(t, res.Outcome.Plans)
	require.NotNil(t, res.Outcome.Guidance)
	assert.Empty(t, res.Outcome.Reason)

	for _, day := range fitplan.Days {
		assert.Len(t, res.Outcome.Plans.Diet.Day(day), 3, "day %s", day)
	}
	assert.Equal(t, 2, runner.Calls(), "one guidance call, one plan call")
}

func TestOrchestrator_MalformedJSON(t *testing.T) {
	runner := mock.NewRunner()
	res := newTestOrchestrator(runner).Handle(context.Background(), []byte(`{"heightCm":`))

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusRejected, res.Outcome.Status)
	assert.Zero(t, runner.Calls())
}

func TestOrchestrator_ValidationFailure(t *testing.T) {
	runner := mock.NewRunner()
	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, map[string]any{"age": 5}))

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusRejected, res.Outcome.Status)
	assert.Contains(t, res.Outcome.Reason, "age")
	assert.Zero(t, runner.Calls())
}

func TestOrchestrator_MedicalGate(t *testing.T) {
	runner := mock.NewRunner(mock.ValidGuidance(), mock.ValidWeeklyPlan())
	res := newTestOrchestrator(runner).Handle(context.Background(),
		validBody(t, map[string]any{"medicalCondition": "type 2 diabetes"}))

	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusRejected, res.Outcome.Status)
	assert.Equal(t, MedicalGateMessage("en"), res.Outcome.Reason)
	assert.Zero(t, runner.Calls(), "the gate must resolve before any remote call")
}

func TestOrchestrator_MedicalGateDefaultLanguage(t *testing.T) {
	runner := mock.NewRunner()
	body := validBody(t, map[string]any{"medicalCondition": "asthma"})
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	delete(m, "language")
	body, _ = json.Marshal(m)

	res := newTestOrchestrator(runner).Handle(context.Background(), body)
	assert.Equal(t, MedicalGateMessage(fitplan.DefaultLanguage), res.Outcome.Reason)
}

func TestOrchestrator_GuidanceExhausted(t *testing.T) {
	invalid := mock.RawValue(map[string]any{"diet_rules": []string{"one"}})
	runner := mock.NewRunner(invalid, invalid)

	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, nil))
	assert.Equal(t, http.StatusBadGateway, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusError, res.Outcome.Status)
	assert.Nil(t, res.Outcome.Plans)
	assert.Equal(t, 2, runner.Calls())
}

func TestOrchestrator_GuidanceTimeout(t *testing.T) {
	gw := inference.NewGateway(slowRunner{delay: 200 * time.Millisecond}, "test-model")
	orch := NewOrchestrator(
		NewGuidanceStage(gw, 800, 5*time.Millisecond, 2, nil),
		NewPlanStage(gw, 2600, time.Second, nil),
	)

	res := orch.Handle(context.Background(), validBody(t, nil))
	assert.Equal(t, http.StatusGatewayTimeout, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusError, res.Outcome.Status)
}

func TestOrchestrator_PlanTruncation(t *testing.T) {
	runner := mock.NewRunner(
		mock.ValidGuidance(),
		mock.Envelope(`{"diet":{"sat":[{"when":"breakf`, "length"),
	)

	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, nil))
	assert.Equal(t, http.StatusBadGateway, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusError, res.Outcome.Status)
	assert.Contains(t, res.Outcome.Reason, "truncated")
}

func TestOrchestrator_PlanShapeMismatchIsRejectedNotErrored(t *testing.T) {
	// Two diet items spread across the week still leaves every day short of
	// three, which strict validation reports as a day-level reason.
	runner := mock.NewRunner(
		mock.ValidGuidance(),
		mock.RawValue(map[string]any{
			"diet": []any{
				map[string]any{"when": "breakfast", "what": "oats", "why": "carbs"},
				map[string]any{"when": "lunch", "what": "rice", "why": "carbs"},
			},
			"exercise": []any{
				map[string]any{"day": "sat", "when": "morning", "goal": "strength",
					"what": "dumbbell", "duration_minutes": 45, "intensity_or_rest": "moderate"},
			},
		}),
	)

	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, nil))
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusRejected, res.Outcome.Status)
	assert.Contains(t, res.Outcome.Reason, "diet.")
	assert.Nil(t, res.Outcome.Plans)
}

func TestOrchestrator_PlanTransportError(t *testing.T) {
	runner := mock.NewRunner(
		mock.ValidGuidance(),
		mock.Step{Err: assert.AnError},
	)

	res := newTestOrchestrator(runner).Handle(context.Background(), validBody(t, nil))
	assert.Equal(t, http.StatusBadGateway, res.HTTPStatus)
	assert.Equal(t, fitplan.StatusError, res.Outcome.Status)
}

type slowRunner struct {
	delay time.Duration
}

func (s slowRunner) Run(ctx context.Context, _ string, _ inference.Request) (json.RawMessage, error) {
	select {
	case <-time.After(s.delay):
		return json.RawMessage(`{}`), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

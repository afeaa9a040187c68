package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitplan"
	"fitplan/inference"
	"fitplan/inference/mock"
)

func testPayload() fitplan.UserPayload {
	profile := fitplan.Profile{
		HeightCm: 178, WeightKg: 76.5, Age: 29,
		Sex: fitplan.SexMale, Goal: fitplan.GoalBuildMuscle, Activity: fitplan.ActivityMedium,
		PracticePlace: fitplan.PlaceGym, Language: fitplan.DefaultLanguage,
	}
	return fitplan.NewUserPayload(profile, fitplan.ComputeNumbers(profile))
}

func guidanceStage(runner inference.Runner, retries int) *GuidanceStage {
	gw := inference.NewGateway(runner, "test-model")
	return NewGuidanceStage(gw, 800, time.Second, retries, nil)
}

func TestGuidanceStage_SucceedsFirstAttempt(t *testing.T) {
	runner := mock.NewRunner(mock.ValidGuidance())
	g, err := guidanceStage(runner, 2).Generate(context.Background(), testPayload(), "en")
	require.NoError(t, err)
	assert.Len(t, g.DietRules, 2)
	assert.Equal(t, 1, runner.Calls())
}

func TestGuidanceStage_RetriesExhausted(t *testing.T) {
	// retries is the total attempt count: two invalid responses with
	// retries=2 must fail without a third call.
	invalid := mock.RawValue(map[string]any{"diet_rules": []string{"only one"}})
	runner := mock.NewRunner(invalid, invalid, mock.ValidGuidance())

	_, err := guidanceStage(runner, 2).Generate(context.Background(), testPayload(), "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, runner.Calls())
}

func TestGuidanceStage_ThirdAttemptSucceeds(t *testing.T) {
	invalid := mock.RawValue(map[string]any{"diet_rules": []string{"only one"}})
	runner := mock.NewRunner(invalid, invalid, mock.ValidGuidance())

	g, err := guidanceStage(runner, 3).Generate(context.Background(), testPayload(), "en")
	require.NoError(t, err)
	assert.Len(t, g.ExerciseRules, 2)
	assert.Equal(t, 3, runner.Calls())
}

func TestGuidanceStage_GatewayErrorsAreRetried(t *testing.T) {
	runner := mock.NewRunner(
		mock.Step{Err: errors.New("upstream 500")},
		mock.ValidGuidance(),
	)

	_, err := guidanceStage(runner, 2).Generate(context.Background(), testPayload(), "en")
	require.NoError(t, err)
	assert.Equal(t, 2, runner.Calls())
}

func TestGuidanceStage_TruncationFailsImmediately(t *testing.T) {
	runner := mock.NewRunner(
		mock.Envelope(`{"diet_rules":["cut off`, "length"),
		mock.ValidGuidance(),
	)

	_, err := guidanceStage(runner, 3).Generate(context.Background(), testPayload(), "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 1, runner.Calls(), "truncation must not be retried")
}

func TestGuidanceStage_LogsEveryAttempt(t *testing.T) {
	invalid := mock.RawValue(map[string]any{"exercise_rules": []string{}})
	runner := mock.NewRunner(invalid, mock.ValidGuidance())
	rec := &recordingStageLogger{}

	gw := inference.NewGateway(runner, "test-model")
	stage := NewGuidanceStage(gw, 800, time.Second, 2, rec)
	_, err := stage.Generate(context.Background(), testPayload(), "en")
	require.NoError(t, err)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "guidance", rec.entries[0].Stage)
	assert.Equal(t, 1, rec.entries[0].Attempt)
	assert.NotEmpty(t, rec.entries[0].Error)
	assert.Equal(t, 2, rec.entries[1].Attempt)
	assert.Empty(t, rec.entries[1].Error)
}

type recordingStageLogger struct {
	entries []fitplan.AttemptLog
}

func (r *recordingStageLogger) LogAttempt(entry fitplan.AttemptLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

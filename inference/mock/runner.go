// Package mock provides a deterministic scripted inference backend. It serves
// tests and the local demo; real models are, of course, less kind.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"fitplan/inference"
)

// Step is one scripted response: either a raw value or an error.
type Step struct {
	Raw json.RawMessage
	Err error
}

// Runner replays its steps in order and counts invocations.
type Runner struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

func NewRunner(steps ...Step) *Runner {
	return &Runner{steps: steps}
}

// Calls reports how many times Run was invoked.
func (r *Runner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Runner) Run(_ context.Context, modelID string, req inference.Request) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Info("MOCK: Invoked", "model", modelID, "messages_len", len(req.Messages), "call", r.calls+1)

	if r.calls >= len(r.steps) {
		r.calls++
		return nil, fmt.Errorf("mock: no response scripted for call %d", r.calls)
	}
	step := r.steps[r.calls]
	r.calls++
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Raw, nil
}

// Envelope wraps content in a chat-completion envelope with the given finish
// reason. Content is embedded as a string, matching how real backends return
// structured output.
func Envelope(content, finishReason string) Step {
	payload := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"content": content},
				"finish_reason": finishReason,
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Step{Raw: raw}
}

// RawValue scripts a bare JSON value, the non-envelope collaborator shape.
func RawValue(v any) Step {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Step{Raw: raw}
}

// ValidGuidance is a well-formed guidance payload for demos and tests.
func ValidGuidance() Step {
	return RawValue(map[string]any{
		"diet_rules":     []string{"Stay within the provided dailyCalories.", "Three simple meals per day."},
		"exercise_rules": []string{"Train four days per week.", "Keep one full rest day."},
	})
}

// ValidWeeklyPlan is a well-formed plan payload covering all seven days.
func ValidWeeklyPlan() Step {
	days := []string{"sat", "sun", "mon", "tue", "wed", "thu", "fri"}
	diet := map[string]any{}
	for _, d := range days {
		diet[d] = []map[string]any{
			{"when": "breakfast", "what": "oats with milk", "why": "slow carbs"},
			{"when": "lunch", "what": "chicken, rice, salad", "why": "protein and carbs"},
			{"when": "dinner", "what": "eggs with vegetables", "why": "light protein"},
		}
	}
	return RawValue(map[string]any{
		"diet": diet,
		"exercise": []map[string]any{
			{"day": "sat", "when": "morning", "goal": "strength", "what": "full body dumbbell", "duration_minutes": 45, "intensity_or_rest": "moderate"},
			{"day": "mon", "when": "evening", "goal": "conditioning", "what": "brisk walk", "duration_minutes": 40, "intensity_or_rest": "low"},
			{"day": "wed", "when": "morning", "goal": "strength", "what": "upper body dumbbell", "duration_minutes": 45, "intensity_or_rest": "moderate"},
		},
	})
}

package fitplan

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StageLogger is the pluggable per-attempt logger for the inference stages.
// Implementations must never alter control flow; the pipeline ignores their
// errors beyond a warning.
type StageLogger interface {
	LogAttempt(attempt AttemptLog) error
}

// AttemptLog captures one inference attempt of one stage.
type AttemptLog struct {
	Stage     string        `json:"stage"`
	Attempt   int           `json:"attempt"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Truncated bool          `json:"truncated,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NoOpStageLogger discards all attempts. The default collaborator.
type NoOpStageLogger struct{}

func NewNoOpStageLogger() *NoOpStageLogger { return &NoOpStageLogger{} }

func (*NoOpStageLogger) LogAttempt(AttemptLog) error { return nil }

// StdoutStageLogger writes each attempt as a JSON line to stdout, suitable
// for platform log collection.
type StdoutStageLogger struct{}

func NewStdoutStageLogger() *StdoutStageLogger { return &StdoutStageLogger{} }

func (*StdoutStageLogger) LogAttempt(attempt AttemptLog) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

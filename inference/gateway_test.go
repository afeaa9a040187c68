package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner lets each test control latency and result directly.
type stubRunner struct {
	raw   json.RawMessage
	err   error
	delay time.Duration
	calls int
}

func (s *stubRunner) Run(ctx context.Context, modelID string, req Request) (json.RawMessage, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.raw, s.err
}

func TestGateway_Invoke(t *testing.T) {
	t.Run("returns the runner result", func(t *testing.T) {
		runner := &stubRunner{raw: json.RawMessage(`{"ok":true}`)}
		gw := NewGateway(runner, "test-model")

		raw, err := gw.Invoke(context.Background(), Request{}, time.Second)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
	})

	t.Run("wraps failures as TransportError", func(t *testing.T) {
		cause := errors.New("connection refused")
		runner := &stubRunner{err: cause}
		gw := NewGateway(runner, "test-model")

		_, err := gw.Invoke(context.Background(), Request{}, time.Second)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("timer beats a slow call", func(t *testing.T) {
		runner := &stubRunner{raw: json.RawMessage(`{}`), delay: 200 * time.Millisecond}
		gw := NewGateway(runner, "test-model")

		start := time.Now()
		_, err := gw.Invoke(context.Background(), Request{}, 20*time.Millisecond)
		var toErr *TimeoutError
		require.ErrorAs(t, err, &toErr)
		assert.Less(t, time.Since(start), 150*time.Millisecond, "must not wait for the slow call")
	})

	t.Run("late result is discarded, not acted upon", func(t *testing.T) {
		runner := &stubRunner{raw: json.RawMessage(`{"late":true}`), delay: 50 * time.Millisecond}
		gw := NewGateway(runner, "test-model")

		_, err := gw.Invoke(context.Background(), Request{}, 5*time.Millisecond)
		var toErr *TimeoutError
		require.ErrorAs(t, err, &toErr)

		// The goroutine writes into a buffered channel; once the timeout path
		// has produced its result nothing ever reads the late value.
		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, 1, runner.calls)
	})

	t.Run("cancelled context surfaces as transport failure", func(t *testing.T) {
		runner := &stubRunner{raw: json.RawMessage(`{}`), delay: time.Second}
		gw := NewGateway(runner, "test-model")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := gw.Invoke(ctx, Request{}, time.Second)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
	})
}

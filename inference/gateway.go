package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Gateway races a single remote call against a timer. It never retries.
type Gateway struct {
	runner  Runner
	modelID string
}

func NewGateway(runner Runner, modelID string) *Gateway {
	return &Gateway{runner: runner, modelID: modelID}
}

type runResult struct {
	raw json.RawMessage
	err error
}

// Invoke runs the request and returns its raw result, a *TimeoutError when
// the timer fires first, or a *TransportError for any other failure.
//
// On timeout the remote call is abandoned via context cancellation; the
// transport is not guaranteed to stop it, so the result channel is buffered
// and a late response is simply dropped.
func (g *Gateway) Invoke(ctx context.Context, req Request, timeout time.Duration) (json.RawMessage, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan runResult, 1)
	go func() {
		raw, err := g.runner.Run(callCtx, g.modelID, req)
		ch <- runResult{raw: raw, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, &TransportError{Cause: res.err}
		}
		if usage, ok := UsageOf(res.raw); ok {
			slog.Info("GATEWAY: Completion usage",
				"model", g.modelID,
				"prompt_tokens", usage.PromptTokens,
				"completion_tokens", usage.CompletionTokens,
			)
		}
		return res.raw, nil
	case <-timer.C:
		slog.Warn("GATEWAY: Remote call abandoned on timeout", "model", g.modelID, "timeout", timeout)
		return nil, &TimeoutError{After: timeout}
	case <-ctx.Done():
		return nil, &TransportError{Cause: ctx.Err()}
	}
}

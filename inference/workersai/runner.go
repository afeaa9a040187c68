// Package workersai runs inference against the Cloudflare Workers AI REST
// API, the original deployment target of this service.
package workersai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"fitplan"
	"fitplan/inference"
)

// Runner calls POST /accounts/{account}/ai/run/{model}.
type Runner struct {
	accountID  string
	apiToken   string
	baseURL    string
	httpClient fitplan.HTTPClient
}

type RunnerOpts struct {
	AccountID  string
	APIToken   string
	BaseURL    string
	HTTPClient fitplan.HTTPClient
}

func NewRunner(opts RunnerOpts) (*Runner, error) {
	if opts.AccountID == "" || opts.APIToken == "" {
		return nil, fmt.Errorf("workersai: account id and api token are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.cloudflare.com/client/v4"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Runner{
		accountID:  opts.AccountID,
		apiToken:   opts.APIToken,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
	}, nil
}

type apiEnvelope struct {
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Run executes one inference call. The API wraps the model output in its own
// result envelope; Run unwraps that layer and returns the model output as-is,
// which may itself still be a chat-completion envelope.
func (r *Runner) Run(ctx context.Context, modelID string, req inference.Request) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", r.baseURL, r.accountID, modelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiToken)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workersai: %s: %s", resp.Status, string(respBody))
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		// Some models answer with the completion object directly.
		return json.RawMessage(respBody), nil
	}
	if !env.Success && len(env.Errors) > 0 {
		return nil, fmt.Errorf("workersai: api error %d: %s", env.Errors[0].Code, env.Errors[0].Message)
	}
	if len(env.Result) == 0 {
		return json.RawMessage(respBody), nil
	}
	return env.Result, nil
}

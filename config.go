package fitplan

import (
	"fmt"
	"time"
)

// InferenceBudget is the total wall-clock ceiling for remote inference in a
// single request. It sits strictly below the platform's hard request timeout
// so a clean timeout response can still be written.
const InferenceBudget = 55 * time.Second

// ModelConfig selects the remote model and its generation parameters.
type ModelConfig struct {
	ModelID           string `env:"MODEL_ID,default=@cf/qwen/qwen3-30b-a3b-fp8"`
	GuidanceMaxTokens int    `env:"GUIDANCE_MAX_TOKENS,default=800"`
	PlanMaxTokens     int    `env:"PLAN_MAX_TOKENS,default=2600"`
}

// ServiceConfig holds the HTTP and pipeline settings.
type ServiceConfig struct {
	Port            int           `env:"PORT,default=8080"`
	GuidanceTimeout time.Duration `env:"GUIDANCE_TIMEOUT,default=20s"`
	PlanTimeout     time.Duration `env:"PLAN_TIMEOUT,default=30s"`
	GuidanceRetries int           `env:"GUIDANCE_RETRIES,default=2"`
}

// Validate rejects a timeout split whose sum exceeds the inference budget.
// Either stage may take any share of the budget, but together they must fit
// under the platform ceiling.
func (c ServiceConfig) Validate() error {
	if c.GuidanceTimeout <= 0 || c.PlanTimeout <= 0 {
		return fmt.Errorf("stage timeouts must be positive")
	}
	if sum := c.GuidanceTimeout + c.PlanTimeout; sum > InferenceBudget {
		return fmt.Errorf("stage timeouts sum to %s, exceeding the %s inference budget", sum, InferenceBudget)
	}
	if c.GuidanceRetries < 1 {
		return fmt.Errorf("guidance retries must be at least 1")
	}
	return nil
}

// WorkersAIConfig configures the Cloudflare Workers AI runner.
type WorkersAIConfig struct {
	AccountID string `env:"CF_ACCOUNT_ID"`
	APIToken  string `env:"CF_API_TOKEN"`
	BaseURL   string `env:"CF_API_BASE_URL,default=https://api.cloudflare.com/client/v4"`
}

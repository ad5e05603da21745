package ports

import "context"

// CompletionRequest carries the per-call settings of one completion. The
// fields mirror the hyperparameters an experiment varies per condition.
type CompletionRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// LLMClient interface for LLM providers
type LLMClient interface {
	ChatCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptlab/domain/space"
	"promptlab/internal"
	"promptlab/ports"
)

// Hyperparameter names the producer recognizes in a condition's binding.
// Anything else rides along as a table column without affecting the call.
const (
	HyperModel       = "model"
	HyperTemperature = "temperature"
	HyperMaxTokens   = "max_tokens"
)

// ProducerConfig holds defaults applied when a condition does not bind the
// corresponding hyperparameter, plus the retry policy.
type ProducerConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// MaxAttempts caps total tries per condition (first call included).
	MaxAttempts int
	// Backoff is the fixed wait between retryable failures.
	Backoff time.Duration
}

// CompletionProducer implements ports.Producer over an LLM client. Retry on
// rate limiting lives here, opaque to the experiment engine: the engine sees
// one successful result or one error per condition.
type CompletionProducer struct {
	client ports.LLMClient
	cfg    ProducerConfig
	log    *internal.Logger
}

// NewCompletionProducer wires a client into a producer.
func NewCompletionProducer(client ports.LLMClient, cfg ProducerConfig, logger *internal.Logger) *CompletionProducer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &CompletionProducer{client: client, cfg: cfg, log: logger}
}

// Produce runs one completion for the rendered prompt, mapping recognized
// hyperparameters onto the request.
func (p *CompletionProducer) Produce(ctx context.Context, prompt string, hypers space.Binding) (string, error) {
	req := ports.CompletionRequest{
		Model:       stringHyper(hypers, HyperModel, p.cfg.Model),
		Prompt:      prompt,
		MaxTokens:   intHyper(hypers, HyperMaxTokens, p.cfg.MaxTokens),
		Temperature: floatHyper(hypers, HyperTemperature, p.cfg.Temperature),
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		result, err := p.client.ChatCompletion(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return "", err
		}
		if attempt == p.cfg.MaxAttempts {
			break
		}
		p.log.Warn("[CompletionProducer] attempt %d/%d failed (%v), retrying in %v",
			attempt, p.cfg.MaxAttempts, err, p.cfg.Backoff)
		select {
		case <-time.After(p.cfg.Backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("gave up after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

func stringHyper(b space.Binding, name, fallback string) string {
	if v, ok := b.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func intHyper(b space.Binding, name string, fallback int) int {
	if v, ok := b.Get(name); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return fallback
}

func floatHyper(b space.Binding, name string, fallback float64) float64 {
	if v, ok := b.Get(name); ok {
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int:
			return float64(n)
		}
	}
	return fallback
}

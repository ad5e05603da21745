package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"promptlab/ports"
)

// Config holds OpenAI client settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates an LLM client based on config
func NewClient(config Config) (ports.LLMClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &OpenAIClient{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Timeout: timeout,
	}, nil
}

// APIError is a non-2xx response from the provider. Status drives the
// producer's retry classification.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("openai status %d: %s", e.Status, body)
}

// Retryable reports whether the call may succeed on a later attempt
// (rate limiting or a server-side failure).
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// OpenAIClient implements ports.LLMClient for OpenAI
type OpenAIClient struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", fmt.Errorf("missing model")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	// Chat Completions API (kept minimal: a single user message)
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature,omitempty"`
		MaxTokens   int     `json:"max_tokens,omitempty"`
	}
	body := reqBody{
		Model: req.Model,
		Messages: []msg{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	client := &http.Client{Timeout: c.Timeout}
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(respRaw)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respRaw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// MockLLMClient is a mock LLM client for testing
type MockLLMClient struct {
	Response string // Set this for testing
	Error    error  // Set this to simulate errors
	// ErrorsBeforeSuccess fails this many calls before succeeding, for
	// exercising retry paths.
	ErrorsBeforeSuccess int

	mu    sync.Mutex
	Calls []ports.CompletionRequest
}

func (m *MockLLMClient) ChatCompletion(ctx context.Context, req ports.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	calls := len(m.Calls)
	m.mu.Unlock()

	if m.Error != nil && (m.ErrorsBeforeSuccess == 0 || calls <= m.ErrorsBeforeSuccess) {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "Simulated response.", nil
}

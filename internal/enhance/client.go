package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config contains LLM backend client configuration
type Config struct {
	BaseURL string
	Model   string
	// EnhanceTimeout bounds enhancement calls, which gate an otherwise
	// synchronous note-creation flow. ChatTimeout bounds open-ended chat
	// calls and is allowed to be longer.
	EnhanceTimeout time.Duration
	ChatTimeout    time.Duration
}

// Result carries the outcome of one enhancement. The success flag is part
// of the payload so callers cannot mistake a degraded response for an
// error. Invariant: when Succeeded is false, Output equals Original.
type Result struct {
	Output    string `json:"output_text"`
	Task      Task   `json:"task"`
	Original  string `json:"original_text"`
	Succeeded bool   `json:"succeeded"`
}

// generateRequest is the LLM backend wire format for a completion call.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Client talks to an Ollama-compatible generate endpoint.
type Client struct {
	config        Config
	enhanceClient *http.Client
	chatClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a new LLM backend client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	if cfg.EnhanceTimeout <= 0 {
		cfg.EnhanceTimeout = 30 * time.Second
	}

	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 60 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		config:        cfg,
		enhanceClient: &http.Client{Timeout: cfg.EnhanceTimeout, Transport: transport},
		chatClient:    &http.Client{Timeout: cfg.ChatTimeout, Transport: transport},
		logger:        logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// Enhance rewrites text according to the task. It never propagates an
// error: on any failure (timeout, connection, non-success status,
// malformed response) it degrades to the unmodified input so that note
// creation still succeeds when the LLM is unavailable.
func (c *Client) Enhance(ctx context.Context, text string, task Task) Result {
	output, err := c.generate(ctx, task.Prompt(text), c.enhanceClient)
	if err != nil {
		c.logger.Warn("Enhancement degraded to pass-through",
			slog.String("task", string(task)),
			slog.String("error", err.Error()),
		)
		return Result{Output: text, Task: task, Original: text, Succeeded: false}
	}

	return Result{Output: output, Task: task, Original: text, Succeeded: true}
}

// Chat sends a free-form prompt with optional context. Unlike Enhance,
// failures surface to the caller.
func (c *Client) Chat(ctx context.Context, prompt, chatContext string) (string, error) {
	full := prompt
	if chatContext != "" {
		full = fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", chatContext, prompt)
	}

	return c.generate(ctx, full, c.chatClient)
}

// generate performs one completion call against the backend.
func (c *Client) generate(ctx context.Context, prompt string, httpClient *http.Client) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("LLM backend returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	output := strings.TrimSpace(genResp.Response)
	if output == "" {
		return "", fmt.Errorf("LLM backend returned empty response")
	}

	return output, nil
}

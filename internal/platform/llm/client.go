// Package llm is the model gateway: the boundary across which scrubbed text is
// sent to a locally hosted language model. Nothing in this package ever sees a
// raw patient identifier; callers are responsible for redacting before the
// Generate call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Generator produces text from a prompt. The only contract is that the result
// is influenced by the prompt; callers must treat the boundary as fallible and
// deadline-bound, and must not retry-mask a failure.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Config holds the gateway endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to an Ollama-compatible chat endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a gateway client. The timeout is a transport-level
// backstop; the overall call deadline comes from the request context.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Model returns the configured model identifier, for audit records.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

const maxResponseBytes = 10 << 20 // 10 MB

// Generate sends the prompt to the model's chat endpoint and returns the
// generated text. Errors never contain the prompt itself, only transport
// detail; since the prompt is already scrubbed this is belt-and-braces for
// operational logs rather than a PHI control.
func (c *Client) Generate(ctx context.Context, prompt, system string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model gateway: status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("model gateway: %s", parsed.Error)
	}

	c.logger.Debug().
		Str("model", c.model).
		Dur("latency", time.Since(start)).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(parsed.Message.Content)).
		Msg("model generation complete")

	return parsed.Message.Content, nil
}

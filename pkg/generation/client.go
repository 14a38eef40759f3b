package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"scopehq/meridian/pkg/scoping"
)

// ClientConfig configures the HTTP generation client.
type ClientConfig struct {
	// BaseURL is the root of an OpenAI-compatible API, without the
	// /v1/chat/completions suffix.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`

	// Model names the chat model.
	Model string `yaml:"model"`

	// Temperature controls sampling. Scoping decisions want it low.
	// Default: 0.1
	Temperature float64 `yaml:"temperature"`

	// Timeout bounds one HTTP request.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`
}

// ApplyDefaults fills unset fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}

// Validate checks required fields.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("generation.base_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client generates decisions through an OpenAI-compatible chat-completions
// endpoint with the JSON response format. A failed or unparsable call is
// retried exactly once before surfacing a GenerationError.
type Client struct {
	config ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a generation client. The config is validated and
// defaulted.
func NewClient(config ClientConfig) (*Client, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				ForceAttemptHTTP2:   true,
			},
		},
		logger: slog.Default().With("component", "generation.client"),
	}, nil
}

// Generate renders the request into prompts, calls the model, and parses
// the structured reply.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	system, user := BuildPrompts(req)

	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying generation", "model", c.config.Model, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, scoping.NewGenerationError(c.config.Model, ctx.Err())
			case <-time.After(time.Second):
			}
		}

		resp, err := c.call(ctx, system, user)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, scoping.NewGenerationError(c.config.Model, lastErr)
}

func (c *Client) call(ctx context.Context, system, user string) (*Response, error) {
	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.config.Temperature,
	}
	payload.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading chat response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat endpoint returned %d: %s", httpResp.StatusCode, truncateText(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	var resp Response
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &resp); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("model output violates contract: %w", err)
	}
	return &resp, nil
}

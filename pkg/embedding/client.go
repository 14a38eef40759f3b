package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ClientConfig configures the HTTP embedding client.
type ClientConfig struct {
	// BaseURL is the root of an OpenAI-compatible API, without the
	// /v1/embeddings suffix.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set. Local endpoints usually
	// leave it empty.
	APIKey string `yaml:"api_key"`

	// Model names the embedding model.
	Model string `yaml:"model"`

	// Dimension is the width of the model's vectors.
	Dimension int `yaml:"dimension"`

	// Timeout bounds one HTTP request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is how many times transient failures (5xx, transport
	// errors) are retried with exponential backoff.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// ApplyDefaults fills unset fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

// Validate checks required fields.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive")
	}
	return nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client is an HTTP embedding service for OpenAI-compatible endpoints.
type Client struct {
	config ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates an embedding client. The config is validated and
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
		logger: slog.Default().With("component", "embedding.client"),
	}, nil
}

// Dimension reports the configured vector width.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

// Embed requests an embedding for one text. Transient failures are
// retried with exponential backoff before the error is returned.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingsRequest{
		Model: c.config.Model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding embeddings request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Debug("retrying embeddings request", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		embedding, retryable, err := c.doEmbed(ctx, body)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) doEmbed(ctx context.Context, body []byte) ([]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, true, fmt.Errorf("reading embeddings response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("embeddings error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return nil, false, fmt.Errorf("embeddings response contained no vectors")
	}

	embedding := parsed.Data[0].Embedding
	if len(embedding) != c.config.Dimension {
		return nil, false, fmt.Errorf("embedding width %d does not match configured dimension %d", len(embedding), c.config.Dimension)
	}
	return embedding, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

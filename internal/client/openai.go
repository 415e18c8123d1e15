package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/farmville-istec/farmville/internal/observability"
)

// CompletionClient submits a prompt to the language-model provider and returns
// the raw completion text. Parsing the text into a suggestion schema is the
// service layer's concern; here a completion either arrives or it does not.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIClient calls the OpenAI chat-completions API.
type OpenAIClient struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewOpenAIClient creates an OpenAI chat-completions client. apiURL should
// point at the chat/completions endpoint; model defaults to gpt-3.5-turbo.
func NewOpenAIClient(apiKey, apiURL, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", ErrInvalidAPIKey)
	}
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	return &OpenAIClient{
		apiKey:      apiKey,
		apiURL:      apiURL,
		model:       model,
		maxTokens:   500,
		temperature: 0.7,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the system and user messages and returns the first choice's
// content. Network, auth and non-2xx failures map to ErrProviderUnavailable
// (ErrInvalidAPIKey for 401, ErrRateLimited for 429).
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.AIAPICallsTotal.WithLabelValues("error").Inc()
		observability.AIAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.AIAPICallsTotal.WithLabelValues(status).Inc()
	observability.AIAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return "", fmt.Errorf("%w: OpenAI rejected key", ErrInvalidAPIKey)
	case http.StatusTooManyRequests:
		return "", fmt.Errorf("%w", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderResponseInvalid, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrProviderResponseInvalid)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Package cohere implements the chat-completion client for the Cohere API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ivanskieee/lantern/internal/metrics"
)

const (
	defaultBaseURL = "https://api.cohere.ai"
	chatModel      = "command-r"
	requestTimeout = 30 * time.Second

	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// Client calls the Cohere /v1/chat endpoint. Calls run through a circuit
// breaker: after consecutive failures the breaker opens and requests fail
// fast until the cool-down elapses.
type Client struct {
	apiKey     string
	baseURL    string // configurable for testing
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cohere",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			slog.Warn("Cohere circuit breaker state changed", "state", to.String())
			metrics.ChatCircuitBreakerState.Set(breakerStateValue(to))
		},
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    breaker,
	}
}

type chatRequest struct {
	Message     string   `json:"message"`
	ChatHistory []string `json:"chat_history"`
	Model       string   `json:"model"`
}

type chatResponse struct {
	Text    string `json:"text"`
	Message string `json:"message"` // error detail on non-2xx responses
}

// Chat sends one message and returns the model's reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	start := time.Now()
	reply, err := c.breaker.Execute(func() (any, error) {
		return c.chat(ctx, message)
	})
	metrics.ChatCompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChatCompletionErrors.Inc()
		return "", err
	}
	return reply.(string), nil
}

func (c *Client) chat(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Message:     message,
		ChatHistory: []string{},
		Model:       chatModel,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, parsed.Message)
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("chat API returned no text")
	}

	return parsed.Text, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ivanskieee/lantern/internal/domain"
)

const defaultRequestTimeout = 60 * time.Second

// APIClient talks to the chat endpoints over HTTP. It is safe for
// concurrent use.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// SendResult is the server's acknowledgement of a sent message.
type SendResult struct {
	Reply          string `json:"reply"`
	ConversationID int64  `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
}

// DeleteResult is the server's acknowledgement of a deletion.
type DeleteResult struct {
	Message        string `json:"message"`
	DeletedID      int64  `json:"deleted_id"`
	ConversationID int64  `json:"conversation_id"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// SendMessage submits a user message. A nil conversationID starts a new
// conversation; the server reports the minted identifier in the result.
func (c *APIClient) SendMessage(ctx context.Context, message string, conversationID *int64) (SendResult, error) {
	body := struct {
		Message        string `json:"message"`
		ConversationID *int64 `json:"conversation_id,omitempty"`
	}{Message: message, ConversationID: conversationID}

	var result SendResult
	if err := c.do(ctx, http.MethodPost, "/chat", body, &result); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

// ListPrompts fetches the full prompt list, newest first.
func (c *APIClient) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	var prompts []domain.Prompt
	if err := c.do(ctx, http.MethodGet, "/chat", nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// GetConversation fetches one conversation's prompts, oldest first.
func (c *APIClient) GetConversation(ctx context.Context, conversationID int64) ([]domain.Prompt, error) {
	var prompts []domain.Prompt
	path := fmt.Sprintf("/chat/conversation/%d", conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// DeletePrompt deletes a single prompt by identifier.
func (c *APIClient) DeletePrompt(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult
	path := fmt.Sprintf("/chat/%d", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return DeleteResult{}, err
	}
	return result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Error, apiErr.Type)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

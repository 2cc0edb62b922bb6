package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_SendsRequestAndReturnsText(t *testing.T) {
	var captured struct {
		path   string
		auth   string
		body   chatRequest
		called bool
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.called = true
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))

		json.NewEncoder(w).Encode(map[string]string{"text": "a generated reply"})
	}))
	t.Cleanup(server.Close)

	client := NewClient("secret-key", server.URL)
	reply, err := client.Chat(context.Background(), "how are you?")
	require.NoError(t, err)

	assert.Equal(t, "a generated reply", reply)
	assert.True(t, captured.called)
	assert.Equal(t, "/v1/chat", captured.path)
	assert.Equal(t, "Bearer secret-key", captured.auth)
	assert.Equal(t, "how are you?", captured.body.Message)
	assert.Equal(t, "command-r", captured.body.Model)
	assert.NotNil(t, captured.body.ChatHistory, "chat_history must serialize as an array")
}

func TestChat_UpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limited"})
	}))
	t.Cleanup(server.Close)

	client := NewClient("key", server.URL)
	_, err := client.Chat(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestChat_EmptyTextRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	t.Cleanup(server.Close)

	client := NewClient("key", server.URL)
	_, err := client.Chat(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text")
}

func TestChat_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	}))
	t.Cleanup(server.Close)

	client := NewClient("key", server.URL)
	ctx := context.Background()

	for range breakerFailureThreshold {
		_, err := client.Chat(ctx, "hello")
		require.Error(t, err)
	}
	assert.Equal(t, int64(breakerFailureThreshold), requests.Load())

	// The breaker is open now: the next call fails fast without an HTTP
	// request.
	_, err := client.Chat(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, int64(breakerFailureThreshold), requests.Load())
}

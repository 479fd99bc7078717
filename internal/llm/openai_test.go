package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int64   `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Timeout: timeout})
	require.NoError(t, err)
	return c
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)
}

func TestCompleteSendsMessagesInOrder(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("  hi there  "))
	}, 0)

	reply, err := c.Complete(context.Background(), Request{
		Model: "gpt-3.5-turbo",
		Messages: []Message{
			{Role: RoleSystem, Content: "be nice"},
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hey"},
			{Role: RoleUser, Content: "how are you"},
		},
		MaxTokens:   150,
		Temperature: Float(0.3),
	})
	require.NoError(t, err)
	require.Equal(t, "hi there", reply)

	require.Equal(t, "gpt-3.5-turbo", got.Model)
	require.EqualValues(t, 150, got.MaxTokens)
	require.InDelta(t, 0.3, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "assistant", got.Messages[2].Role)
	require.Equal(t, "how are you", got.Messages[3].Content)
}

func TestCompleteEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}, 0)

	_, err := c.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
	}, 0)

	_, err := c.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrEmptyCompletion))
}

func TestCompleteTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	start := time.Now()
	_, err := c.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestCompleteValidatesRequest(t *testing.T) {
	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.Error(t, err)
	_, err = c.Complete(context.Background(), Request{Model: "m"})
	require.Error(t, err)
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFallbackEligible(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth status", &ProviderError{Provider: "openai", StatusCode: 401, Message: "bad key"}, true},
		{"forbidden", &ProviderError{Provider: "openai", StatusCode: 403, Message: "nope"}, true},
		{"missing model", &ProviderError{Provider: "openai", StatusCode: 404, Message: "no such model"}, true},
		{"throttled", &ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down"}, true},
		{"server error", &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}, false},
		{"quota text", errors.New("you exceeded your current quota"), true},
		{"rate limit text", errors.New("Rate limit reached for requests"), true},
		{"bad key text", errors.New("Incorrect API key provided"), true},
		{"network error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFallbackEligible(tc.err))
		})
	}
}

func TestOpenAICompleteBuildsFunctionCallingRequest(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"content": "",
					"tool_calls": []map[string]any{{
						"id": "call_1",
						"function": map[string]any{
							"name":      "add_task",
							"arguments": `{"title":"Buy milk"}`,
						},
					}},
				},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, 5*time.Second)
	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:   "You manage tasks.",
		Messages: []Message{{Role: RoleUser, Content: "add buy milk"}},
		Tools: []ToolDefinition{{
			Name:        "add_task",
			Description: "Create a task",
			InputSchema: `{"type":"object","properties":{"title":{"type":"string"}}}`,
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "add_task", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title":"Buy milk"}`, resp.ToolCalls[0].Input)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, 10, resp.Usage.InputTokens)

	// System prompt becomes the leading message and tools ride along.
	msgs := captured["messages"].([]any)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "auto", captured["tool_choice"])
	require.Len(t, captured["tools"], 1)
}

func TestOpenAICompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "You exceeded your current quota", "code": "insufficient_quota"},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 429, pe.StatusCode)
	assert.Equal(t, "insufficient_quota", pe.Code)
	assert.True(t, IsFallbackEligible(err))
}

func TestToolResultMessagesRoundTrip(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"finish_reason": "stop",
				"message":       map[string]any{"content": "Done."},
			}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", "m", srv.URL, 5*time.Second)
	resp, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "add buy milk"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "add_task", Input: `{"title":"Buy milk"}`}}},
			{Role: RoleTool, ToolCallID: "call_1", Content: `{"task_id":1,"status":"created"}`},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Done.", resp.Content)

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 3)
	second := msgs[1].(map[string]any)
	require.Contains(t, second, "tool_calls")
	third := msgs[2].(map[string]any)
	assert.Equal(t, "call_1", third["tool_call_id"])
}

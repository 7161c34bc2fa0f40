package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIClient is a direct HTTP client for the OpenAI chat completions API
// (and compatible servers via a custom base URL).
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a new OpenAI API client. baseURL may be empty to
// use the public endpoint.
func NewOpenAIClient(apiKey, model, baseURL string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp.StatusCode, respBody)
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return c.responseToCompletion(&result, time.Since(start)), nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Helper methods

func (c *OpenAIClient) buildRequestBody(req CompletionRequest) map[string]interface{} {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body := map[string]interface{}{
		"model":    model,
		"messages": c.messagesToOpenAI(req),
	}

	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	if len(req.Tools) > 0 {
		tools := make([]map[string]interface{}, len(req.Tools))
		for i, t := range req.Tools {
			tools[i] = map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  parseJSONSchema(t.InputSchema),
				},
			}
		}
		body["tools"] = tools
		body["tool_choice"] = "auto"
	}

	return body
}

func (c *OpenAIClient) messagesToOpenAI(req CompletionRequest) []map[string]interface{} {
	var result []map[string]interface{}

	if req.System != "" {
		result = append(result, map[string]interface{}{
			"role":    RoleSystem,
			"content": req.System,
		})
	}

	for _, m := range req.Messages {
		entry := map[string]interface{}{
			"role":    m.Role,
			"content": m.Content,
		}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]interface{}, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				calls[i] = map[string]interface{}{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]interface{}{
						"name":      tc.Name,
						"arguments": tc.Input,
					},
				}
			}
			entry["tool_calls"] = calls
		}
		result = append(result, entry)
	}

	return result
}

func (c *OpenAIClient) apiError(status int, body []byte) error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	msg := parsed.Error.Message
	if msg == "" {
		msg = string(body)
	}
	return &ProviderError{
		Provider:   "openai",
		StatusCode: status,
		Code:       parsed.Error.Code,
		Message:    msg,
	}
}

// openAIResponse mirrors the chat completions response shape.
type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) responseToCompletion(r *openAIResponse, dur time.Duration) *CompletionResponse {
	resp := &CompletionResponse{
		Model:    r.Model,
		Duration: dur,
		Usage: Usage{
			InputTokens:  r.Usage.PromptTokens,
			OutputTokens: r.Usage.CompletionTokens,
		},
	}

	if len(r.Choices) == 0 {
		return resp
	}

	choice := r.Choices[0]
	resp.Content = choice.Message.Content
	resp.StopReason = choice.FinishReason
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}
	return resp
}

// parseJSONSchema converts a schema string into a generic map for embedding
// into the request body. Malformed schemas degrade to an empty object schema.
func parseJSONSchema(s string) map[string]interface{} {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil || parsed == nil {
		return map[string]interface{}{"type": "object"}
	}
	return parsed
}

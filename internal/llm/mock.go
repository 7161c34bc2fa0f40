package llm

import "context"

// MockClient is a test double. Set CompleteFunc to control responses.
type MockClient struct {
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Calls        []CompletionRequest
}

// Complete records the request and delegates to CompleteFunc.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.Calls = append(m.Calls, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

// Name returns the provider name.
func (m *MockClient) Name() string {
	return "mock"
}

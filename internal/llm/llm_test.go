package llm

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	for _, p := range []string{"anthropic", "openai", "openrouter"} {
		if _, err := NewProvider(p, "some-model"); err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	if _, err := NewProvider("unknown", "some-model"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestEstimateCostKnownModel(t *testing.T) {
	cost := EstimateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if cost != want {
		t.Errorf("cost = %v, want %v", cost, want)
	}
}

func TestEstimateCostUnknownModelIsFree(t *testing.T) {
	if cost := EstimateCost("llama3", 1000, 1000); cost != 0 {
		t.Errorf("unknown model cost = %v, want 0", cost)
	}
}

func TestEstimateTokens(t *testing.T) {
	if n := EstimateTokens(""); n != 0 {
		t.Errorf("empty text tokens = %d, want 0", n)
	}
	if n := EstimateTokens("ab"); n != 1 {
		t.Errorf("short text tokens = %d, want at least 1", n)
	}
	if n := EstimateTokens("12345678"); n != 2 {
		t.Errorf("tokens = %d, want 2", n)
	}
}

func TestRateLimiterPreservesName(t *testing.T) {
	limited := NewRateLimitedProvider(NewMockProvider("inner"), 60)
	if limited.Name() != "inner" {
		t.Errorf("name = %q, want inner", limited.Name())
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("inner")
	limited := NewRateLimitedProvider(mock, 60)

	resp, err := limited.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "mock response" || mock.CallCount() != 1 {
		t.Errorf("rate limiter did not delegate: %+v", resp)
	}
}

func TestToolCallArgumentsRoundTrip(t *testing.T) {
	args := json.RawMessage(`{"query":"aliquota iva"}`)
	tc := ToolCall{ID: "call_1", Name: "search_knowledge_base", Arguments: args}

	var decoded struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(tc.Arguments, &decoded); err != nil {
		t.Fatalf("unmarshal tool args: %v", err)
	}
	if decoded.Query != "aliquota iva" {
		t.Errorf("query = %q", decoded.Query)
	}
}

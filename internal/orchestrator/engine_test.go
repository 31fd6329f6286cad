package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/cache"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/classify"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/golden"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/guardrail"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/router"
)

// --- Fakes ---

type fakeEpochs struct {
	set epoch.Set
	err error
}

func (f *fakeEpochs) Snapshot(_ context.Context) (epoch.Set, error) {
	return f.set, f.err
}

type fakeGolden struct {
	dec golden.Decision
}

func (f *fakeGolden) Resolve(_ context.Context, _, _ string, _ epoch.Set) golden.Decision {
	return f.dec
}

type fakeRetriever struct {
	res   retrieval.Result
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, _ string) (retrieval.Result, error) {
	f.calls++
	if ctx.Err() != nil {
		return retrieval.Result{}, ctx.Err()
	}
	return f.res, f.err
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]cache.Response
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]cache.Response)}
}

func (m *memCache) Get(_ context.Context, key string) (cache.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.entries[key]; ok {
		return r, nil
	}
	return cache.Response{}, cache.ErrMiss
}

func (m *memCache) Set(_ context.Context, key string, r cache.Response, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = r
	m.sets++
	return nil
}

// stubProvider returns queued responses, after failing the first
// `failures` calls.
type stubProvider struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	failures  int
	calls     []llm.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("transient provider error")
	}
	if len(s.responses) == 0 {
		return &llm.CompletionResponse{
			Content: "answer", InputTokens: 10, OutputTokens: 20, FinishReason: "stop",
		}, nil
	}
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return r, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testEngine(gold golden.Decision, ret *fakeRetriever, c Cache, prov llm.Provider, tools *guardrail.Registry) *Engine {
	rt := router.New(router.Options{
		Strategy:    router.StrategyCheapest,
		BudgetUSD:   100,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
	})
	src := &StaticSource{Backends: []Backend{
		{ID: "stub", Model: "gpt-4o-mini", Provider: prov, QualityTier: 1, Primary: true},
	}}
	eps := &fakeEpochs{set: epoch.Set{KB: 3, Golden: 3, Ruleset: 1, ParserVersion: 1}}
	return New(eps, &fakeGolden{dec: gold}, ret, c, rt, src, classify.NewRuleBased(), tools, Config{CacheTTL: time.Hour})
}

const retrievalQuery = "ravvedimento operoso 2025 Agenzia delle Entrate"

// --- Tests ---

func TestHandleGoldenServe(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	e := testEngine(golden.Decision{
		Outcome: golden.OutcomeServe,
		Answer:  golden.Answer{Text: "validated answer", Citations: []string{"circolare 1/E"}},
	}, ret, newMemCache(), prov, nil)

	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.CacheStatus != StatusGolden {
		t.Errorf("cache status: got %q, want %q", res.CacheStatus, StatusGolden)
	}
	if res.Answer != "validated answer" {
		t.Errorf("answer: got %q", res.Answer)
	}
	if prov.callCount() != 0 {
		t.Errorf("golden serve must not generate, provider called %d times", prov.callCount())
	}
	if ret.calls != 0 {
		t.Errorf("golden serve must not retrieve, retriever called %d times", ret.calls)
	}
}

func TestHandleGoldenMergeFeedsDraftToGeneration(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	e := testEngine(golden.Decision{
		Outcome: golden.OutcomeMerge,
		Answer:  golden.Answer{Text: "stale draft body", Citations: []string{"risoluzione 5/E"}},
	}, ret, newMemCache(), prov, nil)

	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.CacheStatus != StatusMiss {
		t.Errorf("merge must run the full pipeline, got status %q", res.CacheStatus)
	}
	if prov.callCount() != 1 {
		t.Fatalf("expected one generation call, got %d", prov.callCount())
	}
	user := prov.calls[0].Messages[len(prov.calls[0].Messages)-1]
	if !strings.Contains(user.Content, "stale draft body") {
		t.Error("merged draft missing from the generation prompt")
	}
	found := false
	for _, c := range res.Citations {
		if c == "risoluzione 5/E" {
			found = true
		}
	}
	if !found {
		t.Errorf("draft citations not carried into result: %v", res.Citations)
	}
}

func TestHandleGateSkipsRetrieval(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, newMemCache(), prov, nil)

	res, err := e.Handle(context.Background(), Request{Query: "2+2"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if ret.calls != 0 {
		t.Errorf("arithmetic query must skip retrieval, retriever called %d times", ret.calls)
	}
	if res.Answer == "" {
		t.Error("expected a generated answer")
	}
}

func TestHandleGateOffWithholdsTools(t *testing.T) {
	prov := &stubProvider{}
	tools := guardrail.NewRegistry()
	tools.Register(llm.ToolDef{
		Name:       "ricerca_normativa",
		Parameters: json.RawMessage(`{"type":"object"}`),
	}, func(_ context.Context, _ json.RawMessage) (string, error) {
		t.Error("tool must not execute when retrieval is gated off")
		return "", nil
	})

	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, &fakeRetriever{}, newMemCache(), prov, tools)

	_, err := e.Handle(context.Background(), Request{Query: "2+2"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if prov.callCount() != 1 {
		t.Fatalf("provider called %d times, want 1", prov.callCount())
	}
	first := prov.calls[0]
	if first.ToolsAllowed || len(first.Tools) != 0 {
		t.Error("a turn that needs no retrieval must not be offered tools")
	}
}

func TestHandleSecondCallHitsCache(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	c := newMemCache()
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, c, prov, nil)

	req := Request{Query: retrievalQuery, Facts: nil, AttachmentHashes: []string{"abc"}}
	first, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}
	if first.CacheStatus != StatusMiss {
		t.Fatalf("first call: got status %q, want miss", first.CacheStatus)
	}

	second, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("second Handle failed: %v", err)
	}
	if second.CacheStatus != StatusHit {
		t.Errorf("second call: got status %q, want hit", second.CacheStatus)
	}
	if second.Answer != first.Answer {
		t.Errorf("cached answer differs: %q vs %q", second.Answer, first.Answer)
	}
	if prov.callCount() != 1 {
		t.Errorf("second call must not regenerate, provider called %d times", prov.callCount())
	}
}

func TestHandleRetrievalFailureDegrades(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{err: errors.New("search backend down")}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, newMemCache(), prov, nil)

	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("retrieval failure must not fail the request: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if res.Answer == "" {
		t.Error("expected an ungrounded answer")
	}
	if len(res.Citations) != 0 {
		t.Errorf("no grounding means no citations, got %v", res.Citations)
	}
}

func TestHandleToolRound(t *testing.T) {
	args1 := json.RawMessage(`{"query":"aliquota iva"}`)
	prov := &stubProvider{responses: []*llm.CompletionResponse{
		{
			Content: "",
			ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "ricerca_normativa", Arguments: args1},
				{ID: "c2", Name: "ricerca_normativa", Arguments: args1},
				{ID: "c3", Name: "ricerca_normativa", Arguments: json.RawMessage(`{"query":"altro"}`)},
			},
			InputTokens: 10, OutputTokens: 5, FinishReason: "tool_calls",
		},
		{Content: "final answer", InputTokens: 30, OutputTokens: 40, FinishReason: "stop"},
	}}

	executed := 0
	tools := guardrail.NewRegistry()
	tools.Register(llm.ToolDef{
		Name:       "ricerca_normativa",
		Parameters: json.RawMessage(`{"type":"object"}`),
	}, func(_ context.Context, _ json.RawMessage) (string, error) {
		executed++
		return "norma trovata", nil
	})

	ret := &fakeRetriever{}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, newMemCache(), prov, tools)

	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.Answer != "final answer" {
		t.Errorf("answer: got %q", res.Answer)
	}
	if executed != 1 {
		t.Errorf("exactly one tool call must execute, got %d", executed)
	}
	if prov.callCount() != 2 {
		t.Errorf("expected two generation passes, got %d", prov.callCount())
	}
	if len(res.ToolResults) != 3 {
		t.Fatalf("expected three audited proposals, got %d", len(res.ToolResults))
	}
	if res.ToolResults[0].Outcome != string(guardrail.OutcomeExecuted) {
		t.Errorf("first proposal: got %q", res.ToolResults[0].Outcome)
	}
	// Second pass must not offer tools again.
	second := prov.calls[1]
	if second.ToolsAllowed || len(second.Tools) != 0 {
		t.Error("regeneration pass must withhold tools")
	}
}

func TestHandleBudgetExceeded(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	rt := router.New(router.Options{
		Strategy:    router.StrategyCheapest,
		BudgetUSD:   0.0000001,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
	})
	src := &StaticSource{Backends: []Backend{
		{ID: "stub", Model: "gpt-4o", Provider: prov, QualityTier: 2, Primary: true},
	}}
	eps := &fakeEpochs{set: epoch.Set{KB: 1}}
	e := New(eps, &fakeGolden{dec: golden.Decision{Outcome: golden.OutcomeSkip}}, ret,
		newMemCache(), rt, src, classify.NewRuleBased(), nil, Config{})

	_, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if !errors.Is(err, router.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if prov.callCount() != 0 {
		t.Errorf("budget error must precede generation, provider called %d times", prov.callCount())
	}
}

func TestHandleDomainQueryAvoidsLiteBackend(t *testing.T) {
	lite := &stubProvider{}
	normal := &stubProvider{}
	ret := &fakeRetriever{}
	rt := router.New(router.Options{
		Strategy:    router.StrategyCheapest,
		BudgetUSD:   100,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
	})
	src := &StaticSource{Backends: testBackends(lite, normal)}
	eps := &fakeEpochs{set: epoch.Set{KB: 1}}
	e := New(eps, &fakeGolden{dec: golden.Decision{Outcome: golden.OutcomeSkip}}, ret,
		newMemCache(), rt, src, classify.NewRuleBased(), nil, Config{})

	// A confident tax question goes to the tier-2 backend even though the
	// lite one is cheaper.
	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.ProviderID != "normal" {
		t.Errorf("tax query routed to %q, want normal", res.ProviderID)
	}
	if lite.callCount() != 0 {
		t.Errorf("lite provider called %d times, want 0", lite.callCount())
	}

	// A generic query takes the cheapest backend.
	res, err = e.Handle(context.Background(), Request{Query: "2+2"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.ProviderID != "lite" {
		t.Errorf("generic query routed to %q, want lite", res.ProviderID)
	}
}

func TestHandleExhaustedSurfaces(t *testing.T) {
	prov := &stubProvider{failures: 10}
	ret := &fakeRetriever{}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, newMemCache(), prov, nil)

	_, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if !errors.Is(err, router.ErrExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestHandleCancelledContext(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{}
	c := newMemCache()
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, c, prov, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Handle(ctx, Request{Query: retrievalQuery})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.sets != 0 {
		t.Errorf("no cache write after cancellation before generation, got %d writes", c.sets)
	}
}

func TestHandleEmptyQuery(t *testing.T) {
	prov := &stubProvider{}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, &fakeRetriever{}, newMemCache(), prov, nil)

	if _, err := e.Handle(context.Background(), Request{Query: "   "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestHandleRetrievedChunksBecomeCitations(t *testing.T) {
	prov := &stubProvider{}
	ret := &fakeRetriever{res: retrieval.Result{Chunks: []retrieval.ScoredChunk{
		{ID: "a#0", Source: "circolare-7E-2025.md", Content: "testo", Score: 0.9},
		{ID: "a#1", Source: "circolare-7E-2025.md", Content: "altro testo", Score: 0.8},
		{ID: "b#0", Source: "dlgs-231.md", Content: "testo b", Score: 0.7},
	}}}
	e := testEngine(golden.Decision{Outcome: golden.OutcomeSkip}, ret, newMemCache(), prov, nil)

	res, err := e.Handle(context.Background(), Request{Query: retrievalQuery})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(res.Citations) != 2 {
		t.Fatalf("expected two distinct sources, got %v", res.Citations)
	}
	if res.Citations[0] != "circolare-7E-2025.md" || res.Citations[1] != "dlgs-231.md" {
		t.Errorf("citations out of order: %v", res.Citations)
	}
	// The grounding block reaches the model.
	user := prov.calls[0].Messages[len(prov.calls[0].Messages)-1]
	if !strings.Contains(user.Content, "testo b") {
		t.Error("retrieved content missing from prompt")
	}
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/cache"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/classify"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/facts"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/gate"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/golden"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/guardrail"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/router"
)

// The engine consumes capabilities, not concrete stores, so tests can run
// it entirely against fakes.

// EpochSource reads the current epoch counters.
type EpochSource interface {
	Snapshot(ctx context.Context) (epoch.Set, error)
}

// GoldenResolver decides the golden fast path.
type GoldenResolver interface {
	Resolve(ctx context.Context, signature, query string, epochs epoch.Set) golden.Decision
}

// Retriever produces grounding context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Cache is the response cache capability. Get returns cache.ErrMiss on any
// miss; Set failures never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) (cache.Response, error)
	Set(ctx context.Context, key string, r cache.Response, ttl time.Duration) error
}

// Generator plans and runs routed generation.
type Generator interface {
	Plan(candidates []router.Candidate) (router.Candidate, error)
	Route(ctx context.Context, candidates []router.Candidate, req llm.CompletionRequest) (router.Result, error)
}

// Classifier assigns a domain/action signal to the query.
type Classifier interface {
	Classify(ctx context.Context, query string) classify.Result
}

// Config tunes the engine. Zero values take defaults.
type Config struct {
	PromptVersion string
	Temperature   float64
	MaxTokens     int
	CacheTTL      time.Duration
}

func (c *Config) defaults() {
	if c.PromptVersion == "" {
		c.PromptVersion = PromptVersion
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 24 * time.Hour
	}
}

// Engine sequences one request through the pipeline. It holds no per-request
// state; concurrent Handle calls are independent.
type Engine struct {
	epochs     EpochSource
	golden     GoldenResolver
	retriever  Retriever
	cache      Cache
	router     Generator
	candidates CandidateSource
	classifier Classifier
	tools      *guardrail.Registry // nil disables tools
	cfg        Config
	now        func() time.Time
}

// New wires an Engine from its collaborators. tools may be nil.
func New(epochs EpochSource, goldenResolver GoldenResolver, retriever Retriever,
	responseCache Cache, rt Generator, candidates CandidateSource,
	classifier Classifier, tools *guardrail.Registry, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		epochs:     epochs,
		golden:     goldenResolver,
		retriever:  retriever,
		cache:      responseCache,
		router:     rt,
		candidates: candidates,
		classifier: classifier,
		tools:      tools,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Handle runs one request through the full pipeline and returns the answer.
// Budget and exhaustion errors from routing surface unchanged so transports
// can map them; every other collaborator failure degrades per its local
// policy instead of failing the request.
func (e *Engine) Handle(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Result{}, errors.New("empty query")
	}

	st := &State{Phase: PhaseResolveEpochs, Query: req.Query}
	start := e.now()

	eps, err := e.epochs.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("resolving epochs: %w", err)
	}
	st.Epochs = eps
	st.Signature = facts.Signature(req.Facts)

	st.Phase = PhaseGoldenCheck
	gd := e.golden.Resolve(ctx, st.Signature, req.Query, eps)
	switch gd.Outcome {
	case golden.OutcomeServe:
		slog.Info("request served from golden path",
			"signature", st.Signature, "elapsed", e.now().Sub(start))
		return Result{
			Answer:      gd.Answer.Text,
			Citations:   gd.Answer.Citations,
			CostUSD:     0,
			CacheStatus: StatusGolden,
		}, nil
	case golden.OutcomeMerge:
		a := gd.Answer
		st.GoldenDraft = &a
	}

	st.Phase = PhaseRetrievalGate
	gateDec := gate.Evaluate(req.Query)
	st.NeedsRetrieval = gateDec.NeedsRetrieval
	st.GateReasons = gateDec.Reasons

	if st.NeedsRetrieval {
		st.Phase = PhaseHybridRetrieve
		res, err := e.retriever.Retrieve(ctx, req.Query)
		switch {
		case err != nil && ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil:
			slog.Warn("retrieval failed, answering without grounding", "error", err)
			st.Degraded = true
		default:
			st.Chunks = res.Chunks
			st.Degraded = res.Degraded
		}
	}

	st.Classification = e.classifier.Classify(ctx, req.Query)

	// The gate decision also governs tools: a turn that needs no retrieval
	// gets no tool access, so the model cannot re-open the knowledge base
	// the gate just ruled out.
	toolsAllowed := st.NeedsRetrieval && e.tools != nil && len(e.tools.Defs()) > 0
	msgs := buildMessages(req, st)
	creq := llm.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	}
	if toolsAllowed {
		creq.Tools = e.tools.Defs()
		creq.ToolsAllowed = true
	}

	st.Phase = PhaseBuildCacheKey
	cands := e.candidates.Candidates(creq, st.Classification)
	planned, err := e.router.Plan(cands)
	if err != nil {
		return Result{}, err
	}
	st.CacheKey = cache.Key(cache.KeyInputs{
		Signature:        st.Signature,
		AttachmentHashes: req.AttachmentHashes,
		Epochs:           eps,
		PromptVersion:    e.cfg.PromptVersion,
		ProviderID:       planned.ID,
		ModelID:          planned.Model,
		Temperature:      e.cfg.Temperature,
		ToolsUsed:        toolsAllowed,
	})

	st.Phase = PhaseCacheCheck
	if cached, err := e.cache.Get(ctx, st.CacheKey); err == nil {
		slog.Info("request served from cache",
			"key", st.CacheKey, "elapsed", e.now().Sub(start))
		return Result{
			Answer:      cached.Answer,
			Citations:   cached.Citations,
			ProviderID:  cached.ProviderID,
			ModelID:     cached.ModelID,
			CostUSD:     cached.CostUSD,
			CacheStatus: StatusHit,
			Degraded:    st.Degraded,
		}, nil
	}

	st.Phase = PhaseGenerate
	routed, err := e.router.Route(ctx, cands, creq)
	if err != nil {
		return Result{}, err
	}
	answer := routed.Response.Content
	cost := llm.EstimateCost(routed.Model, routed.Response.InputTokens, routed.Response.OutputTokens)

	st.Phase = PhaseToolCheck
	var toolResults []ToolResult
	if toolsAllowed && len(routed.Response.ToolCalls) > 0 {
		turn := guardrail.NewTurn(e.tools)
		toolMsgs := turn.HandleAll(ctx, routed.Response.ToolCalls)
		for _, rec := range turn.Records() {
			toolResults = append(toolResults, ToolResult{
				Name:    rec.Call.Name,
				Outcome: string(rec.Outcome),
				Result:  rec.Result,
			})
		}

		// One regeneration with the tool answers in context. Tools are
		// withheld on the second pass so a turn can never loop.
		followup := creq
		followup.Tools = nil
		followup.ToolsAllowed = false
		followup.Messages = make([]llm.Message, 0, len(msgs)+1+len(toolMsgs))
		followup.Messages = append(followup.Messages, msgs...)
		followup.Messages = append(followup.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   routed.Response.Content,
			ToolCalls: routed.Response.ToolCalls,
		})
		followup.Messages = append(followup.Messages, toolMsgs...)

		routed, err = e.router.Route(ctx, cands, followup)
		if err != nil {
			return Result{}, err
		}
		answer = routed.Response.Content
		cost += llm.EstimateCost(routed.Model, routed.Response.InputTokens, routed.Response.OutputTokens)
	}

	citations := st.citations()

	// Generation completed, so the write proceeds even if the caller has
	// gone away since.
	st.Phase = PhaseStoreCache
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.cache.Set(wctx, st.CacheKey, cache.Response{
		Answer:     answer,
		Citations:  citations,
		ProviderID: routed.CandidateID,
		ModelID:    routed.Model,
		CostUSD:    cost,
		CreatedAt:  e.now(),
	}, e.cfg.CacheTTL); err != nil {
		slog.Warn("cache write failed", "key", st.CacheKey, "error", err)
	}

	st.Phase = PhaseDone
	slog.Info("request completed",
		"provider", routed.CandidateID,
		"model", routed.Model,
		"domain", st.Classification.Domain,
		"chunks", len(st.Chunks),
		"tools", len(toolResults),
		"cost_usd", cost,
		"degraded", st.Degraded,
		"elapsed", e.now().Sub(start))

	return Result{
		Answer:      answer,
		Citations:   citations,
		ProviderID:  routed.CandidateID,
		ModelID:     routed.Model,
		CostUSD:     cost,
		CacheStatus: StatusMiss,
		Degraded:    st.Degraded,
		ToolResults: toolResults,
	}, nil
}

package orchestrator

import (
	"github.com/mickgian/PratikoAi-BE-sub011/internal/classify"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/facts"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/golden"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
)

// Phase names one step of the request pipeline. Phases only move forward;
// the sole loop in the pipeline is the router's bounded retry, which lives
// entirely inside PhaseGenerate.
type Phase string

const (
	PhaseResolveEpochs  Phase = "resolve_epochs"
	PhaseGoldenCheck    Phase = "golden_check"
	PhaseRetrievalGate  Phase = "retrieval_gate"
	PhaseHybridRetrieve Phase = "hybrid_retrieve"
	PhaseBuildCacheKey  Phase = "build_cache_key"
	PhaseCacheCheck     Phase = "cache_check"
	PhaseGenerate       Phase = "generate"
	PhaseToolCheck      Phase = "tool_check"
	PhaseStoreCache     Phase = "store_cache"
	PhaseDone           Phase = "done"
)

// Request is one user question with its normalized facts and any attachment
// content hashes.
type Request struct {
	Query            string       `json:"query"`
	Facts            []facts.Fact `json:"facts,omitempty"`
	AttachmentHashes []string     `json:"attachment_hashes,omitempty"`
}

// CacheStatus reports how the answer was produced.
type CacheStatus string

const (
	StatusHit    CacheStatus = "hit"
	StatusMiss   CacheStatus = "miss"
	StatusGolden CacheStatus = "golden"
)

// ToolResult is the audited outcome of one proposed tool call.
type ToolResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Result  string `json:"result,omitempty"`
}

// Result is what the engine hands back to its transport caller.
type Result struct {
	Answer      string       `json:"answer"`
	Citations   []string     `json:"citations,omitempty"`
	ProviderID  string       `json:"provider_id,omitempty"`
	ModelID     string       `json:"model_id,omitempty"`
	CostUSD     float64      `json:"cost_usd"`
	CacheStatus CacheStatus  `json:"cache_status"`
	Degraded    bool         `json:"degraded,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// State carries every phase product for one request. Each request gets its
// own State; nothing here is shared across requests.
type State struct {
	Phase Phase

	Query     string
	Signature string
	Epochs    epoch.Set

	GoldenDraft    *golden.Answer // set when a confident-but-stale answer merges in
	NeedsRetrieval bool
	GateReasons    []string
	Chunks         []retrieval.ScoredChunk
	Degraded       bool

	Classification classify.Result
	CacheKey       string
}

package orchestrator

import (
	"github.com/mickgian/PratikoAi-BE-sub011/internal/classify"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/router"
)

// CandidateSource builds the per-request candidate list with live cost
// estimates for the given completion request. The classification signal
// shapes availability: professional-domain queries are not served by
// backends below the quality floor their domain demands.
type CandidateSource interface {
	Candidates(req llm.CompletionRequest, cls classify.Result) []router.Candidate
}

// Backend is one configured generation backend, constructed once at
// process start.
type Backend struct {
	ID          string
	Model       string
	Provider    llm.Provider
	QualityTier int
	Primary     bool
}

// StaticSource derives candidates from a fixed backend list, estimating
// each backend's cost for the request at hand.
type StaticSource struct {
	Backends []Backend
}

// minTierFor maps the classified domain onto a minimum quality tier.
// Confident tax/legal/labor/accounting questions never go to a lite model;
// generic or low-confidence queries may use any backend.
func minTierFor(cls classify.Result) int {
	if cls.Domain != classify.DomainGeneric && cls.Confidence >= 0.7 {
		return 2
	}
	return 1
}

func (s *StaticSource) Candidates(req llm.CompletionRequest, cls classify.Result) []router.Candidate {
	inputTokens := 0
	for _, m := range req.Messages {
		inputTokens += llm.EstimateTokens(m.Content)
	}
	outputTokens := req.MaxTokens
	if outputTokens == 0 {
		outputTokens = 1024
	}

	minTier := minTierFor(cls)
	// The floor only binds when some backend satisfies it; a lite-only
	// deployment still answers professional questions.
	satisfiable := false
	for _, b := range s.Backends {
		if b.QualityTier >= minTier {
			satisfiable = true
			break
		}
	}
	if !satisfiable {
		minTier = 1
	}

	out := make([]router.Candidate, 0, len(s.Backends))
	for _, b := range s.Backends {
		out = append(out, router.Candidate{
			ID:            b.ID,
			Model:         b.Model,
			Provider:      b.Provider,
			EstimatedCost: llm.EstimateCost(b.Model, inputTokens, outputTokens),
			QualityTier:   b.QualityTier,
			Available:     b.Provider != nil && b.QualityTier >= minTier,
			Primary:       b.Primary,
		})
	}
	return out
}

// Package router selects a generation backend under a routing strategy and
// cost budget, with bounded retry and deterministic failover.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
)

// Strategy names how candidates are ranked.
type Strategy string

const (
	StrategyCheapest Strategy = "cheapest"
	StrategyBest     Strategy = "best-quality"
	StrategyBalanced Strategy = "balanced"
	StrategyPrimary  Strategy = "primary"
)

// Sentinel errors surfaced to the orchestration engine.
var (
	// ErrBudgetExceeded means no candidate fits the cost ceiling. It is
	// surfaced to the caller, never silently downgraded.
	ErrBudgetExceeded = errors.New("no provider candidate fits the cost budget")
	// ErrExhausted means retries and failover ran out on the last allowed
	// attempt; callers treat it as fatal.
	ErrExhausted = errors.New("all provider candidates exhausted")
)

// Candidate is one generation backend option, built fresh per request.
type Candidate struct {
	ID            string
	Model         string
	Provider      llm.Provider
	EstimatedCost float64 // USD for this request's estimated token usage
	QualityTier   int     // 1 = lite .. 3 = max
	Available     bool
	Primary       bool
}

// Options bounds the routing loop.
type Options struct {
	Strategy     Strategy
	BudgetUSD    float64
	QualityFloor int           // cheapest strategy ignores tiers below this
	MaxAttempts  int           // per-candidate attempts before failover
	BackoffBase  time.Duration // first retry delay, doubled per attempt
}

func (o *Options) defaults() {
	if o.Strategy == "" {
		o.Strategy = StrategyBalanced
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 200 * time.Millisecond
	}
}

// Result is a successful routed generation.
type Result struct {
	Response    *llm.CompletionResponse
	CandidateID string
	Model       string
	Attempts    int // total attempts across all candidates
}

// Router routes generation calls across candidates.
type Router struct {
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Router. Zero-valued Options fields take defaults.
func New(opts Options) *Router {
	opts.defaults()
	return &Router{opts: opts, sleep: sleepCtx}
}

// rank orders candidates per the strategy. Unavailable candidates are
// dropped first. The order is deterministic: ties break on ID.
func (r *Router) rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Available {
			continue
		}
		if r.opts.Strategy == StrategyCheapest && c.QualityTier < r.opts.QualityFloor {
			continue
		}
		ranked = append(ranked, c)
	}

	less := func(i, j int) bool { return ranked[i].ID < ranked[j].ID }
	switch r.opts.Strategy {
	case StrategyCheapest:
		less = func(i, j int) bool {
			if ranked[i].EstimatedCost != ranked[j].EstimatedCost {
				return ranked[i].EstimatedCost < ranked[j].EstimatedCost
			}
			return ranked[i].ID < ranked[j].ID
		}
	case StrategyBest:
		less = func(i, j int) bool {
			if ranked[i].QualityTier != ranked[j].QualityTier {
				return ranked[i].QualityTier > ranked[j].QualityTier
			}
			return ranked[i].ID < ranked[j].ID
		}
	case StrategyBalanced:
		score := func(c Candidate) float64 {
			// Quality counts for more than cost; cost in cents keeps the
			// two terms on comparable scales.
			return float64(c.QualityTier) - c.EstimatedCost*10
		}
		less = func(i, j int) bool {
			si, sj := score(ranked[i]), score(ranked[j])
			if si != sj {
				return si > sj
			}
			return ranked[i].ID < ranked[j].ID
		}
	case StrategyPrimary:
		less = func(i, j int) bool {
			if ranked[i].Primary != ranked[j].Primary {
				return ranked[i].Primary
			}
			return ranked[i].ID < ranked[j].ID
		}
	}
	sort.SliceStable(ranked, less)
	return ranked
}

// Plan ranks the candidates and returns the one Route would try first,
// without invoking any provider. Callers use it to pin provider and model
// identifiers before generation, for cache keying.
func (r *Router) Plan(candidates []Candidate) (Candidate, error) {
	ranked := r.rank(candidates)
	if len(ranked) == 0 {
		return Candidate{}, ErrExhausted
	}
	budget := r.opts.BudgetUSD
	for _, c := range ranked {
		if budget > 0 && c.EstimatedCost > budget {
			continue
		}
		return c, nil
	}
	return Candidate{}, fmt.Errorf("%w: budget %.4f USD, cheapest candidate %.4f USD",
		ErrBudgetExceeded, budget, cheapest(ranked))
}

// Route ranks the candidates, applies the budget ceiling and runs the
// generation with bounded retry and failover.
//
// Budget policy: the initial choice must fit BudgetUSD (over-budget
// candidates are skipped toward the next-cheapest); once a chosen candidate
// has failed, failover may spend up to twice the original ceiling so a
// request already paid for in retries is not abandoned over a marginal cost
// difference.
func (r *Router) Route(ctx context.Context, candidates []Candidate, req llm.CompletionRequest) (Result, error) {
	ranked := r.rank(candidates)
	if len(ranked) == 0 {
		return Result{}, ErrExhausted
	}

	budget := r.opts.BudgetUSD
	if budget > 0 && cheapest(ranked) > budget {
		return Result{}, fmt.Errorf("%w: budget %.4f USD, cheapest candidate %.4f USD",
			ErrBudgetExceeded, budget, cheapest(ranked))
	}

	// Failover ceiling relaxes to 2x the original budget: the first pick
	// must fit BudgetUSD, but once attempts have been spent a candidate
	// between 1x and 2x may still take the request.
	failoverBudget := budget * 2

	totalAttempts := 0
	attempted := false
	var lastErr error
	for _, c := range ranked {
		ceiling := budget
		if attempted {
			ceiling = failoverBudget
		}
		if budget > 0 && c.EstimatedCost > ceiling {
			slog.Debug("candidate over ceiling, stepping down",
				"candidate", c.ID, "estimated_cost", c.EstimatedCost, "ceiling", ceiling)
			continue
		}
		attempted = true

		creq := req
		creq.Model = c.Model

		for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
			totalAttempts++
			resp, err := c.Provider.Complete(ctx, creq)
			if err == nil {
				slog.Info("generation routed",
					"candidate", c.ID, "model", c.Model, "attempts", totalAttempts)
				return Result{Response: resp, CandidateID: c.ID, Model: c.Model, Attempts: totalAttempts}, nil
			}
			lastErr = err

			// Caller cancellation is not a provider failure; stop routing.
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}

			slog.Warn("generation attempt failed",
				"candidate", c.ID, "attempt", attempt, "error", err)

			if attempt < r.opts.MaxAttempts {
				if err := r.sleep(ctx, r.opts.BackoffBase*(1<<(attempt-1))); err != nil {
					return Result{}, err
				}
			}
		}
	}

	return Result{}, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, totalAttempts, lastErr)
}

func cheapest(cs []Candidate) float64 {
	min := cs[0].EstimatedCost
	for _, c := range cs[1:] {
		if c.EstimatedCost < min {
			min = c.EstimatedCost
		}
	}
	return min
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

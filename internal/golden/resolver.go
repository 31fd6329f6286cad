package golden

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
)

// MinServeConfidence is the confidence floor below which a golden answer is
// never served directly.
const MinServeConfidence = 0.90

// defaultMinSimilarity is the semantic-match floor for signature misses.
const defaultMinSimilarity = 0.92

// Outcome classifies a fast-path resolution.
type Outcome string

const (
	// OutcomeServe means the golden answer is fresh and confident enough
	// to be returned without generation.
	OutcomeServe Outcome = "serve"
	// OutcomeMerge means a golden answer matched but the knowledge base
	// has advanced past its validation epoch; the draft is reusable as
	// context but fresh retrieval and generation are required.
	OutcomeMerge Outcome = "merge"
	// OutcomeSkip means no usable golden answer exists.
	OutcomeSkip Outcome = "skip"
)

// Decision is the resolver's verdict plus the matched answer, when any.
type Decision struct {
	Outcome    Outcome
	Answer     Answer  // valid for Serve and Merge
	Similarity float32 // >0 only for semantic matches
}

// Lookup is the store capability the resolver consumes.
type Lookup interface {
	BySignature(ctx context.Context, signature string) (Answer, error)
	BySimilarity(ctx context.Context, query string, minSimilarity float32) (Answer, float32, error)
}

// Resolver decides whether a golden answer may be served for a request.
type Resolver struct {
	store         Lookup
	minSimilarity float32
}

// NewResolver creates a Resolver over the given lookup capability.
func NewResolver(store Lookup) *Resolver {
	return &Resolver{store: store, minSimilarity: defaultMinSimilarity}
}

// Resolve looks up a golden answer by exact signature, then by semantic
// similarity, and applies the freshness rule: serve only if confidence is at
// least MinServeConfidence and the knowledge base has not advanced past the
// epoch the answer was validated at. A stale but confident match becomes a
// Merge so generation can reuse the draft with fresh grounding.
//
// Store failures skip the fast path; they never fail the request.
func (r *Resolver) Resolve(ctx context.Context, signature, query string, epochs epoch.Set) Decision {
	a, err := r.store.BySignature(ctx, signature)
	var similarity float32
	if errors.Is(err, ErrNotFound) {
		a, similarity, err = r.store.BySimilarity(ctx, query, r.minSimilarity)
	}
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("golden lookup failed, skipping fast path", "error", err)
		}
		r.record(Decision{Outcome: OutcomeSkip}, epochs, false)
		return Decision{Outcome: OutcomeSkip}
	}

	fresh := epochs.KB <= a.Epoch
	confident := a.Confidence >= MinServeConfidence

	d := Decision{Answer: a, Similarity: similarity}
	switch {
	case confident && fresh:
		d.Outcome = OutcomeServe
	case confident:
		// Never serve an answer whose supporting facts may be outdated.
		d.Outcome = OutcomeMerge
	default:
		d.Outcome = OutcomeSkip
	}

	r.record(d, epochs, true)
	return d
}

func (r *Resolver) record(d Decision, epochs epoch.Set, matched bool) {
	attrs := []any{
		"outcome", string(d.Outcome),
		"match_found", matched,
		"kb_epoch", epochs.KB,
	}
	if matched {
		attrs = append(attrs,
			"golden_id", d.Answer.ID,
			"confidence", d.Answer.Confidence,
			"answer_epoch", d.Answer.Epoch,
			"similarity", d.Similarity,
		)
	}
	slog.Info("golden fast-path decision", attrs...)
}

// Package retrieval fuses lexical, vector-similarity and recency signals
// into one ranked, deduplicated chunk list used to ground generation.
package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/knowledge"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/vectordb"
)

// Weights controls the relative contribution of each retrieval signal.
// They are empirically tuned defaults and deployment-tunable via config.
type Weights struct {
	Lexical float64
	Vector  float64
	Recency float64
}

// DefaultWeights are the tuned production defaults.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.50, Vector: 0.35, Recency: 0.15}
}

// Options configures a Retriever.
type Options struct {
	Weights         Weights
	TopK            int           // final result size cap
	FetchK          int           // per-signal fetch size before fusion
	MinScore        float64       // fused-score floor; chunks below are dropped
	RecencyHalfLife time.Duration // age at which the recency signal halves
	SearchTimeout   time.Duration // per-leg search budget
}

func (o *Options) defaults() {
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.FetchK <= 0 {
		o.FetchK = o.TopK * 4
	}
	if o.RecencyHalfLife <= 0 {
		o.RecencyHalfLife = 365 * 24 * time.Hour
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 5 * time.Second
	}
}

// Lexical is the full-text search capability consumed by the retriever.
type Lexical interface {
	LexicalSearch(ctx context.Context, query string, k int) ([]knowledge.LexicalHit, error)
}

// Vector is the semantic search capability consumed by the retriever.
type Vector interface {
	SearchChunks(ctx context.Context, query string, k int) ([]vectordb.Hit, error)
}

// ChunkVectors adapts a vectordb.Store to the Vector interface, pinned to
// the knowledge-chunk collection.
type ChunkVectors struct {
	Store *vectordb.Store
}

func (c ChunkVectors) SearchChunks(ctx context.Context, query string, k int) ([]vectordb.Hit, error) {
	return c.Store.Query(ctx, vectordb.CollectionChunks, query, k)
}

// ScoredChunk is one fused retrieval result.
type ScoredChunk struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`

	// Per-signal contributions, kept for observability.
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	RecencyScore float64 `json:"recency_score"`
}

// Result is the retriever's output. Empty Chunks means "no grounding
// available" and is not an error. Degraded marks results produced while one
// or both search legs failed.
type Result struct {
	Chunks   []ScoredChunk
	Degraded bool
}

// Retriever implements hybrid retrieval over the two search capabilities.
type Retriever struct {
	lexical Lexical
	vector  Vector
	opts    Options
	now     func() time.Time
}

// New creates a Retriever. Zero-valued Options fields take tuned defaults.
func New(lexical Lexical, vector Vector, opts Options) *Retriever {
	opts.defaults()
	return &Retriever{lexical: lexical, vector: vector, opts: opts, now: time.Now}
}

// Retrieve issues the lexical and vector searches concurrently, joins them,
// fuses the signals and returns the top results above the score floor.
//
// A failed or timed-out leg degrades to the other leg's results; only the
// caller's context cancellation aborts the whole call.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	var (
		mu       sync.Mutex
		lexHits  []knowledge.LexicalHit
		vecHits  []vectordb.Hit
		degraded bool
	)

	// Leg failures are recovered locally, so the group never carries an
	// error; it only joins the fan-out.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, r.opts.SearchTimeout)
		defer cancel()
		hits, err := r.lexical.LexicalSearch(legCtx, query, r.opts.FetchK)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Warn("lexical search failed, degrading", "error", err)
			degraded = true
			return nil
		}
		lexHits = hits
		return nil
	})

	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(gctx, r.opts.SearchTimeout)
		defer cancel()
		hits, err := r.vector.SearchChunks(legCtx, query, r.opts.FetchK)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Warn("vector search failed, degrading", "error", err)
			degraded = true
			return nil
		}
		vecHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	chunks := r.fuse(lexHits, vecHits)
	return Result{Chunks: chunks, Degraded: degraded}, nil
}

// fuse merges the two hit lists, deduplicating strictly by chunk ID. Two
// chunks of the same parent document stay distinct; the same chunk reached
// through both paths is merged into one entry carrying both signals.
func (r *Retriever) fuse(lexHits []knowledge.LexicalHit, vecHits []vectordb.Hit) []ScoredChunk {
	byID := make(map[string]*ScoredChunk)
	order := make([]string, 0, len(lexHits)+len(vecHits))

	ensure := func(id string) *ScoredChunk {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &ScoredChunk{ID: id}
		byID[id] = c
		order = append(order, id)
		return c
	}

	for i, h := range lexHits {
		c := ensure(h.Chunk.ID)
		c.Source = h.Chunk.Source
		c.Title = h.Chunk.Title
		c.Content = h.Chunk.Content
		c.PublishedAt = h.Chunk.PublishedAt
		// Reciprocal-rank normalization maps bm25 ordering into (0,1].
		c.LexicalScore = math.Max(c.LexicalScore, 1.0/float64(i+1))
	}

	for _, h := range vecHits {
		c := ensure(h.ID)
		if c.Content == "" {
			c.Content = h.Content
			c.Source = h.Metadata["source"]
			c.Title = h.Metadata["title"]
			if ts := h.Metadata["published_at"]; ts != "" {
				if t, err := time.Parse(time.RFC3339, ts); err == nil {
					c.PublishedAt = t
				}
			}
		}
		c.VectorScore = math.Max(c.VectorScore, float64(h.Similarity))
	}

	now := r.now()
	fused := make([]ScoredChunk, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.RecencyScore = recencyDecay(now, c.PublishedAt, r.opts.RecencyHalfLife)
		c.Score = r.opts.Weights.Lexical*c.LexicalScore +
			r.opts.Weights.Vector*c.VectorScore +
			r.opts.Weights.Recency*c.RecencyScore
		if c.Score < r.opts.MinScore {
			continue
		}
		fused = append(fused, *c)
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if len(fused) > r.opts.TopK {
		fused = fused[:r.opts.TopK]
	}
	return fused
}

// recencyDecay returns an exponential freshness score in (0,1]: 1 for
// brand-new content, halving every halfLife. Unknown timestamps score 0.
func recencyDecay(now, publishedAt time.Time, halfLife time.Duration) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	age := now.Sub(publishedAt)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

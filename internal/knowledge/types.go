package knowledge

import "time"

// Chunk is an addressable unit of knowledge-base content, smaller than a
// whole source document. IDs are globally unique across documents.
type Chunk struct {
	ID          string
	Source      string // parent document identifier (path or registry id)
	Title       string
	Content     string
	PublishedAt time.Time
}

// LexicalHit is one full-text search result with its bm25-derived rank.
// Lower Rank means a better match (bm25 returns negative scores in SQLite;
// callers normalize before fusing).
type LexicalHit struct {
	Chunk Chunk
	Rank  float64
}

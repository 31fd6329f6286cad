package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
)

// Store persists knowledge chunks in SQLite and serves full-text queries
// through the FTS5 mirror table.
type Store struct {
	db *db.DB
}

// NewStore creates a chunk store on the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert inserts or replaces the given chunks in one transaction.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO knowledge_chunks (id, source, title, content, published_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source = excluded.source,
		   title = excluded.title,
		   content = excluded.content,
		   published_at = excluded.published_at`,
	)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Source, c.Title, c.Content, c.PublishedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// LexicalSearch runs a full-text query and returns up to k hits ordered by
// bm25 rank (best first). An empty or operator-only query returns no hits.
func (s *Store) LexicalSearch(ctx context.Context, query string, k int) ([]LexicalHit, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.source, c.title, c.content, c.published_at, bm25(knowledge_chunks_fts)
		 FROM knowledge_chunks_fts f
		 JOIN knowledge_chunks c ON c.rowid = f.rowid
		 WHERE knowledge_chunks_fts MATCH ?
		 ORDER BY bm25(knowledge_chunks_fts)
		 LIMIT ?`,
		match, k,
	)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		var publishedAt string
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.Source, &h.Chunk.Title, &h.Chunk.Content, &publishedAt, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			h.Chunk.PublishedAt = t
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// ftsQuery turns free text into a safe FTS5 MATCH expression: each term is
// quoted so user input can never inject FTS operators, and terms are OR-ed
// so partial matches still rank.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}

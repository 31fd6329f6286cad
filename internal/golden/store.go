// Package golden manages pre-approved answers and the fast path that may
// serve them without a generation call.
package golden

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/vectordb"
)

// Answer is a published, versioned golden answer. Published rows are
// immutable: a revision is a new row with a newer epoch.
type Answer struct {
	ID         string    `json:"id"`
	Signature  string    `json:"signature"`
	Question   string    `json:"question"`
	Text       string    `json:"text"`
	Citations  []string  `json:"citations"`
	Confidence float64   `json:"confidence"`
	Epoch      int64     `json:"epoch"`
	CreatedAt  time.Time `json:"created_at"`
}

// ErrNotFound is returned when no golden answer matches a lookup.
var ErrNotFound = errors.New("golden answer not found")

// Store persists golden answers in SQLite and mirrors their questions into
// the vector store for semantic lookup.
type Store struct {
	db      *db.DB
	vectors *vectordb.Store
}

// NewStore creates a golden answer store. vectors may be nil, in which case
// semantic lookup is disabled and only exact-signature lookup works.
func NewStore(database *db.DB, vectors *vectordb.Store) *Store {
	return &Store{db: database, vectors: vectors}
}

// Publish stores a new golden answer version stamped with the given epoch.
func (s *Store) Publish(ctx context.Context, a Answer) (Answer, error) {
	if a.Confidence < 0 || a.Confidence > 1 {
		return Answer{}, fmt.Errorf("confidence %v out of [0,1]", a.Confidence)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now().UTC()

	citations, err := json.Marshal(a.Citations)
	if err != nil {
		return Answer{}, fmt.Errorf("marshalling citations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO golden_answers (id, signature, question, answer, citations, confidence, epoch, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Signature, a.Question, a.Text, string(citations), a.Confidence, a.Epoch,
		a.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Answer{}, fmt.Errorf("inserting golden answer: %w", err)
	}

	if s.vectors != nil {
		doc := vectordb.Doc{
			ID:      a.ID,
			Content: a.Question,
			Metadata: map[string]string{
				"signature": a.Signature,
			},
		}
		if err := s.vectors.Add(ctx, vectordb.CollectionGolden, []vectordb.Doc{doc}); err != nil {
			return Answer{}, fmt.Errorf("indexing golden question: %w", err)
		}
	}

	return a, nil
}

// BySignature returns the newest golden answer for the exact signature.
func (s *Store) BySignature(ctx context.Context, signature string) (Answer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, signature, question, answer, citations, confidence, epoch, created_at
		 FROM golden_answers WHERE signature = ?
		 ORDER BY epoch DESC, created_at DESC LIMIT 1`,
		signature,
	)
	return scanAnswer(row)
}

// BySimilarity finds the published answer whose question is semantically
// closest to the query, if its similarity clears minSimilarity.
func (s *Store) BySimilarity(ctx context.Context, query string, minSimilarity float32) (Answer, float32, error) {
	if s.vectors == nil {
		return Answer{}, 0, ErrNotFound
	}

	hits, err := s.vectors.Query(ctx, vectordb.CollectionGolden, query, 1)
	if err != nil {
		return Answer{}, 0, fmt.Errorf("semantic golden lookup: %w", err)
	}
	if len(hits) == 0 || hits[0].Similarity < minSimilarity {
		return Answer{}, 0, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, signature, question, answer, citations, confidence, epoch, created_at
		 FROM golden_answers WHERE id = ?`,
		hits[0].ID,
	)
	a, err := scanAnswer(row)
	if err != nil {
		return Answer{}, 0, err
	}
	return a, hits[0].Similarity, nil
}

func scanAnswer(row *sql.Row) (Answer, error) {
	var a Answer
	var citations, createdAt string
	err := row.Scan(&a.ID, &a.Signature, &a.Question, &a.Text, &citations, &a.Confidence, &a.Epoch, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Answer{}, ErrNotFound
	}
	if err != nil {
		return Answer{}, fmt.Errorf("scanning golden answer: %w", err)
	}
	if err := json.Unmarshal([]byte(citations), &a.Citations); err != nil {
		return Answer{}, fmt.Errorf("unmarshalling citations: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}

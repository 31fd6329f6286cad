package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
)

// ErrMiss is returned by Get when no unexpired entry matches the key.
var ErrMiss = errors.New("cache miss")

// Response is one cached generation result.
type Response struct {
	Answer     string    `json:"answer"`
	Citations  []string  `json:"citations"`
	ProviderID string    `json:"provider_id"`
	ModelID    string    `json:"model_id"`
	CostUSD    float64   `json:"cost_usd"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the SQLite-backed response cache. Reads and writes are by exact
// key only; store failures surface as misses so the cache can never block a
// request.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a response cache on the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Get returns the cached response for the exact key if it has not expired.
func (s *Store) Get(ctx context.Context, key string) (Response, error) {
	var r Response
	var citations, createdAt, expiresAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT answer, citations, provider_id, model_id, cost_usd, created_at, expires_at
		 FROM response_cache WHERE key = ?`,
		key,
	).Scan(&r.Answer, &citations, &r.ProviderID, &r.ModelID, &r.CostUSD, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, ErrMiss
	}
	if err != nil {
		slog.Warn("cache read failed, treating as miss", "error", err)
		return Response{}, ErrMiss
	}

	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || !s.now().Before(exp) {
		// Expired rows are cleaned up lazily on the read path.
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM response_cache WHERE key = ?`, key); delErr != nil {
			slog.Debug("expired cache row cleanup failed", "error", delErr)
		}
		return Response{}, ErrMiss
	}

	if err := json.Unmarshal([]byte(citations), &r.Citations); err != nil {
		return Response{}, ErrMiss
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = t
	}
	return r, nil
}

// Set stores the response under the key with the given ttl, replacing any
// previous entry.
func (s *Store) Set(ctx context.Context, key string, r Response, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	citations, err := json.Marshal(r.Citations)
	if err != nil {
		return fmt.Errorf("marshalling citations: %w", err)
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO response_cache (key, answer, citations, provider_id, model_id, cost_usd, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   answer = excluded.answer,
		   citations = excluded.citations,
		   provider_id = excluded.provider_id,
		   model_id = excluded.model_id,
		   cost_usd = excluded.cost_usd,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		key, r.Answer, string(citations), r.ProviderID, r.ModelID, r.CostUSD,
		now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

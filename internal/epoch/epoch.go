// Package epoch tracks monotonically increasing freshness counters for the
// externally owned data sources: the knowledge base, the golden answer set,
// the domain ruleset and the document parser version. Each request takes a
// single snapshot so every decision inside that request sees one consistent
// view of freshness.
package epoch

import (
	"context"
	"fmt"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
)

// Known counter names.
const (
	KB      = "kb"
	Golden  = "golden"
	Ruleset = "ruleset"
	Parser  = "parser"
)

// Set is a request-scoped snapshot of all freshness counters.
type Set struct {
	KB            int64 `json:"kb_epoch"`
	Golden        int64 `json:"golden_epoch"`
	Ruleset       int64 `json:"ruleset_epoch"`
	ParserVersion int64 `json:"parser_version"`
}

// Resolver reads and advances epoch counters.
type Resolver interface {
	Snapshot(ctx context.Context) (Set, error)
	Bump(ctx context.Context, name string) (int64, error)
}

// SQLResolver is the SQLite-backed Resolver.
type SQLResolver struct {
	db *db.DB
}

// NewSQLResolver creates a Resolver on the given database.
func NewSQLResolver(database *db.DB) *SQLResolver {
	return &SQLResolver{db: database}
}

// Snapshot reads all counters in one query. Counters that were never bumped
// read as 0.
func (r *SQLResolver) Snapshot(ctx context.Context) (Set, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM epochs`)
	if err != nil {
		return Set{}, fmt.Errorf("reading epochs: %w", err)
	}
	defer rows.Close()

	var set Set
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return Set{}, fmt.Errorf("scanning epoch row: %w", err)
		}
		switch name {
		case KB:
			set.KB = value
		case Golden:
			set.Golden = value
		case Ruleset:
			set.Ruleset = value
		case Parser:
			set.ParserVersion = value
		}
	}
	return set, rows.Err()
}

// Bump increments the named counter and returns its new value. The upsert
// keeps the counter monotonic: values only ever grow.
func (r *SQLResolver) Bump(ctx context.Context, name string) (int64, error) {
	switch name {
	case KB, Golden, Ruleset, Parser:
	default:
		return 0, fmt.Errorf("unknown epoch counter %q", name)
	}

	var value int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO epochs (name, value, updated_at) VALUES (?, 1, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET value = value + 1, updated_at = datetime('now')
		 RETURNING value`,
		name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("bumping epoch %s: %w", name, err)
	}
	return value, nil
}

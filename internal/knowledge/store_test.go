package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func testChunks() []Chunk {
	now := time.Now().UTC()
	return []Chunk{
		{ID: "c1", Source: "circolare-7e", Title: "Aliquote IVA", Content: "aliquota ordinaria iva al ventidue per cento", PublishedAt: now},
		{ID: "c2", Source: "circolare-7e", Title: "Aliquote ridotte", Content: "aliquota ridotta iva al dieci per cento per alimentari", PublishedAt: now.Add(-time.Hour)},
		{ID: "c3", Source: "guida-irpef", Title: "Scaglioni IRPEF", Content: "scaglioni irpef e aliquote progressive", PublishedAt: now.Add(-48 * time.Hour)},
	}
}

func TestUpsertAndLexicalSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, testChunks()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.LexicalSearch(ctx, "aliquota iva", 10)
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("got %d hits, want at least the two IVA chunks", len(hits))
	}
	for _, h := range hits {
		if h.Chunk.Content == "" || h.Chunk.ID == "" {
			t.Errorf("hit missing fields: %+v", h)
		}
	}
}

func TestUpsertIsIdempotentPerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := testChunks()
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	chunks[0].Content = "contenuto aggiornato aliquota iva"
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d after re-upsert, want 3", n)
	}

	hits, err := s.LexicalSearch(ctx, "aggiornato", 5)
	if err != nil {
		t.Fatalf("LexicalSearch: %v", err)
	}
	if len(hits) != 1 || hits[0].Chunk.ID != "c1" {
		t.Errorf("updated content not searchable: %+v", hits)
	}
}

func TestFTSQuerySanitization(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"aliquota iva", `"aliquota" OR "iva"`},
		{`"quoted" term`, `"quoted" OR "term"`},
		{"", ""},
		{`NEAR( injection`, `"NEAR(" OR "injection"`},
	}
	for _, c := range cases {
		if got := ftsQuery(c.in); got != c.want {
			t.Errorf("ftsQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestOperatorQueryDoesNotError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, testChunks()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.LexicalSearch(ctx, `iva AND (aliquota OR "x`, 5); err != nil {
		t.Errorf("sanitized operator query errored: %v", err)
	}
}

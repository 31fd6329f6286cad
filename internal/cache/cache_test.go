package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
)

func baseInputs() KeyInputs {
	return KeyInputs{
		Signature:        "sig-abc",
		AttachmentHashes: []string{"h1", "h2"},
		Epochs:           epoch.Set{KB: 3, Golden: 2, Ruleset: 1, ParserVersion: 4},
		PromptVersion:    "v2",
		ProviderID:       "anthropic",
		ModelID:          "claude-sonnet-4-5-20250929",
		Temperature:      0.2,
		ToolsUsed:        false,
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	if Key(baseInputs()) != Key(baseInputs()) {
		t.Error("identical inputs produced different keys")
	}
}

func TestAttachmentHashOrderIsNormalized(t *testing.T) {
	a := baseInputs()
	b := baseInputs()
	b.AttachmentHashes = []string{"h2", "h1"}
	if Key(a) != Key(b) {
		t.Error("attachment hash order changed the key")
	}
}

func TestAnySingleFieldChangeChangesKey(t *testing.T) {
	base := Key(baseInputs())

	mutations := map[string]func(*KeyInputs){
		"kb_epoch":       func(in *KeyInputs) { in.Epochs.KB++ },
		"golden_epoch":   func(in *KeyInputs) { in.Epochs.Golden++ },
		"ruleset_epoch":  func(in *KeyInputs) { in.Epochs.Ruleset++ },
		"parser_version": func(in *KeyInputs) { in.Epochs.ParserVersion++ },
		"prompt_version": func(in *KeyInputs) { in.PromptVersion = "v3" },
		"provider_id":    func(in *KeyInputs) { in.ProviderID = "openai" },
		"model_id":       func(in *KeyInputs) { in.ModelID = "gpt-4o" },
		"temperature":    func(in *KeyInputs) { in.Temperature = 0.7 },
		"tools_used":     func(in *KeyInputs) { in.ToolsUsed = true },
		"signature":      func(in *KeyInputs) { in.Signature = "sig-other" },
		"attachments":    func(in *KeyInputs) { in.AttachmentHashes = append(in.AttachmentHashes, "h3") },
	}

	for field, mutate := range mutations {
		in := baseInputs()
		mutate(&in)
		if Key(in) == base {
			t.Errorf("changing %s did not change the key", field)
		}
	}
}

func newTestCache(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestCache(t)
	ctx := context.Background()

	want := Response{
		Answer:     "L'aliquota ordinaria è il 22%.",
		Citations:  []string{"dpr 633/1972 art. 16"},
		ProviderID: "anthropic",
		ModelID:    "claude-sonnet-4-5-20250929",
		CostUSD:    0.004,
	}
	if err := s.Set(ctx, "k1", want, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Answer != want.Answer || got.ProviderID != want.ProviderID || got.CostUSD != want.CostUSD {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Citations) != 1 || got.Citations[0] != want.Citations[0] {
		t.Errorf("citations mismatch: %v", got.Citations)
	}
}

func TestGetMissesOnUnknownKey(t *testing.T) {
	s := newTestCache(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrMiss) {
		t.Errorf("got %v, want ErrMiss", err)
	}
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	s := newTestCache(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", Response{Answer: "x"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Move the clock past the ttl.
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrMiss) {
		t.Errorf("got %v, want ErrMiss for expired entry", err)
	}
}

func TestSetReplacesExistingEntry(t *testing.T) {
	s := newTestCache(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", Response{Answer: "prima"}, time.Hour); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := s.Set(ctx, "k1", Response{Answer: "seconda"}, time.Hour); err != nil {
		t.Fatalf("second Set: %v", err)
	}

	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Answer != "seconda" {
		t.Errorf("got %q, want the replacing entry", got.Answer)
	}
}

func TestSetRejectsNonPositiveTTL(t *testing.T) {
	s := newTestCache(t)
	if err := s.Set(context.Background(), "k", Response{}, 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

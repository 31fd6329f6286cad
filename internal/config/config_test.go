package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != "balanced" {
		t.Errorf("expected default strategy %q, got %q", "balanced", cfg.Routing.Strategy)
	}
	if len(cfg.Providers) == 0 {
		t.Fatal("expected default providers")
	}
	if !cfg.Providers[0].Primary {
		t.Error("expected first default provider to be primary")
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("expected default ttl 24h, got %d", cfg.Cache.TTLHours)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pratiko.yml")

	original := DefaultConfig()
	original.Server.Port = 9090
	original.Routing.Strategy = "cheapest"
	original.Routing.MaxCostUSD = 1.5
	original.Ingest.Include = []string{"**/*.md", "docs/**/*.txt"}
	original.Providers = []ProviderEntry{
		{ID: "only", Type: ProviderOllama, Model: "llama3", Quality: QualityLite, Primary: true},
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server.Port != original.Server.Port {
		t.Errorf("port: got %d, want %d", loaded.Server.Port, original.Server.Port)
	}
	if loaded.Routing.Strategy != original.Routing.Strategy {
		t.Errorf("strategy: got %q, want %q", loaded.Routing.Strategy, original.Routing.Strategy)
	}
	if loaded.Routing.MaxCostUSD != original.Routing.MaxCostUSD {
		t.Errorf("max_cost_usd: got %f, want %f", loaded.Routing.MaxCostUSD, original.Routing.MaxCostUSD)
	}
	if len(loaded.Providers) != 1 || loaded.Providers[0].ID != "only" {
		t.Errorf("providers round-trip failed: %+v", loaded.Providers)
	}
	if len(loaded.Ingest.Include) != len(original.Ingest.Include) {
		t.Fatalf("include length: got %d, want %d", len(loaded.Ingest.Include), len(original.Ingest.Include))
	}
	for i, v := range loaded.Ingest.Include {
		if v != original.Ingest.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Ingest.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	os.Setenv("PRATIKO_ROUTING__STRATEGY", "cheapest")
	defer os.Unsetenv("PRATIKO_ROUTING__STRATEGY")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Routing.Strategy != "cheapest" {
		t.Errorf("env override failed: got %q, want %q", loaded.Routing.Strategy, "cheapest")
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateNoProviders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty providers")
	}
}

func TestValidateDuplicateProviderID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = []ProviderEntry{
		{ID: "dup", Type: ProviderAnthropic, Model: "m"},
		{ID: "dup", Type: ProviderOpenAI, Model: "m"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for duplicate provider id")
	}
}

func TestValidateInvalidProviderType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers[0].Type = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider type")
	}
}

func TestValidateEmptyModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers[0].Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty model")
	}
}

func TestValidateInvalidStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.Strategy = "random"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid strategy")
	}
}

func TestValidateNegativeCost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.MaxCostUSD = -5.0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative max_cost_usd")
	}
}

func TestValidateZeroWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retrieval.LexicalWeight = 0
	cfg.Retrieval.VectorWeight = 0
	cfg.Retrieval.RecencyWeight = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for all-zero retrieval weights")
	}
}

func TestValidateNonPositiveTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTLHours = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero cache ttl_hours")
	}
}

func TestValidateEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty data_dir")
	}
}

func TestDefaultModel(t *testing.T) {
	if m := DefaultModel(ProviderAnthropic, QualityLite); m != "claude-haiku-4-5-20251001" {
		t.Errorf("expected haiku model, got %q", m)
	}
	if m := DefaultModel("unknown", QualityLite); m != "" {
		t.Errorf("expected empty model for unknown provider, got %q", m)
	}
}

func TestQualityTierLevel(t *testing.T) {
	tests := []struct {
		tier QualityTier
		want int
	}{
		{QualityLite, 1},
		{QualityNormal, 2},
		{QualityMax, 3},
		{"", 2},
	}
	for _, tt := range tests {
		if got := tt.tier.Level(); got != tt.want {
			t.Errorf("Level(%q) = %d, want %d", tt.tier, got, tt.want)
		}
	}
}

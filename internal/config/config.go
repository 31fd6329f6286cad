package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PRATIKO_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables. Double underscore nests sections, so
	// PRATIKO_ROUTING__MAX_COST_USD -> routing.max_cost_usd.
	if err := k.Load(env.Provider("PRATIKO_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "PRATIKO_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// validStrategies is the set of recognized routing strategies.
var validStrategies = map[string]bool{
	"cheapest":     true,
	"best-quality": true,
	"balanced":     true,
	"primary":      true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider id is required")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
		if !validProviders[p.Type] {
			return fmt.Errorf("invalid provider type %q: must be one of anthropic, openai, openrouter, ollama", p.Type)
		}
		if p.Model == "" {
			return fmt.Errorf("provider %q: model is required", p.ID)
		}
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q", c.Embedding.Provider)
	}

	if !validStrategies[c.Routing.Strategy] {
		return fmt.Errorf("invalid routing strategy %q: must be one of cheapest, best-quality, balanced, primary", c.Routing.Strategy)
	}
	if c.Routing.MaxCostUSD < 0 {
		return fmt.Errorf("max_cost_usd must be non-negative")
	}

	w := c.Retrieval
	if w.LexicalWeight < 0 || w.VectorWeight < 0 || w.RecencyWeight < 0 {
		return fmt.Errorf("retrieval weights must be non-negative")
	}
	if w.LexicalWeight+w.VectorWeight+w.RecencyWeight == 0 {
		return fmt.Errorf("at least one retrieval weight must be positive")
	}

	if c.Cache.TTLHours <= 0 {
		return fmt.Errorf("cache ttl_hours must be positive")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	return nil
}

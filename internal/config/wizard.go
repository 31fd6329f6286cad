package config

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// apiKeyEnvVars maps cloud providers to the environment variable holding
// their API key. Ollama needs no key.
var apiKeyEnvVars = map[ProviderType]string{
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .pratiko.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to pratiko! Let's configure your assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Primary provider selection.
	providerPrompt := promptui.Select{
		Label: "Select primary LLM provider",
		Items: []string{"anthropic", "openai", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   — fast & cheap (haiku / gpt-4o-mini)",
			"normal — balanced (sonnet / gpt-4o)",
			"max    — highest quality",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	// 3. Routing strategy.
	strategyPrompt := promptui.Select{
		Label: "Select routing strategy",
		Items: []string{"balanced", "cheapest", "best-quality", "primary"},
	}
	_, strategy, err := strategyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("strategy selection: %w", err)
	}

	// 4. Per-query budget.
	budgetPrompt := promptui.Prompt{
		Label:   "Max cost per query (USD)",
		Default: "0.25",
	}
	budgetStr, err := budgetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("budget: %w", err)
	}
	var budget float64
	if _, err := fmt.Sscanf(budgetStr, "%f", &budget); err != nil || budget < 0 {
		return nil, fmt.Errorf("invalid budget %q", budgetStr)
	}

	// 5. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.Storage.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	cfg.Routing.Strategy = strategy
	cfg.Routing.MaxCostUSD = budget
	cfg.Storage.DataDir = dataDir
	cfg.Embedding.Provider = embeddingProviderFor(provider)
	if cfg.Embedding.Provider == ProviderOllama {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	cfg.Providers = []ProviderEntry{
		{
			ID:      string(provider) + "-" + string(quality),
			Type:    provider,
			Model:   DefaultModel(provider, quality),
			Quality: quality,
			Primary: true,
			RPM:     60,
		},
	}
	// Keep a cheap fallback candidate when the primary is a cloud provider.
	if provider != ProviderOllama && provider != ProviderOpenAI {
		cfg.Providers = append(cfg.Providers, ProviderEntry{
			ID:      "openai-lite",
			Type:    ProviderOpenAI,
			Model:   DefaultModel(ProviderOpenAI, QualityLite),
			Quality: QualityLite,
			RPM:     120,
		})
	}

	// Check for API keys.
	for _, p := range cfg.Providers {
		if envVar := apiKeyEnvVars[p.Type]; envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: set %s in your environment before running pratiko serve.\n", envVar)
		}
	}

	configPath := ".pratiko.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}

package config

// qualityModels maps each provider+quality combination to its default model.
var qualityModels = map[ProviderType]map[QualityTier]string{
	ProviderAnthropic: {
		QualityLite:   "claude-haiku-4-5-20251001",
		QualityNormal: "claude-sonnet-4-5-20250929",
		QualityMax:    "claude-sonnet-4-5-20250929",
	},
	ProviderOpenAI: {
		QualityLite:   "gpt-4o-mini",
		QualityNormal: "gpt-4o",
		QualityMax:    "gpt-4o",
	},
	ProviderOpenRouter: {
		QualityLite:   "minimax/minimax-m2.5",
		QualityNormal: "minimax/minimax-m2.5",
		QualityMax:    "minimax/minimax-m2.5",
	},
	ProviderOllama: {
		QualityLite:   "llama3",
		QualityNormal: "llama3",
		QualityMax:    "llama3:70b",
	},
}

// DefaultModel returns the model for a provider at a quality tier.
func DefaultModel(p ProviderType, q QualityTier) string {
	if models, ok := qualityModels[p]; ok {
		if m, ok := models[q]; ok {
			return m
		}
	}
	return ""
}

// DefaultConfig returns the built-in configuration, overridden by file and
// environment at load time.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Storage: StorageConfig{
			DataDir: ".pratiko",
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			MinScore:       0.05,
			LexicalWeight:  0.50,
			VectorWeight:   0.35,
			RecencyWeight:  0.15,
			TimeoutSeconds: 5,
		},
		Routing: RoutingConfig{
			Strategy:       "balanced",
			MaxCostUSD:     0.25,
			QualityFloor:   1,
			MaxAttempts:    3,
			Temperature:    0.2,
			TimeoutSeconds: 60,
		},
		Providers: []ProviderEntry{
			{ID: "anthropic-normal", Type: ProviderAnthropic, Model: DefaultModel(ProviderAnthropic, QualityNormal), Quality: QualityNormal, Primary: true, RPM: 60},
			{ID: "openai-lite", Type: ProviderOpenAI, Model: DefaultModel(ProviderOpenAI, QualityLite), Quality: QualityLite, RPM: 120},
		},
		Cache: CacheConfig{
			TTLHours: 24,
		},
		Ingest: IngestConfig{
			Include:      []string{"**/*.md", "**/*.txt"},
			MaxChunkSize: 1600,
		},
	}
}

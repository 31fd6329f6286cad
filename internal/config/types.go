package config

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// Level maps a tier onto the router's numeric quality scale.
func (q QualityTier) Level() int {
	switch q {
	case QualityLite:
		return 1
	case QualityMax:
		return 3
	default:
		return 2
	}
}

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level pratiko configuration, corresponding to .pratiko.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Storage   StorageConfig   `yaml:"storage" koanf:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Routing   RoutingConfig   `yaml:"routing" koanf:"routing"`
	Providers []ProviderEntry `yaml:"providers" koanf:"providers"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Ingest    IngestConfig    `yaml:"ingest" koanf:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// StorageConfig locates the SQLite database and the vector store directory.
type StorageConfig struct {
	DataDir string `yaml:"data_dir" koanf:"data_dir"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
}

// RetrievalConfig tunes hybrid retrieval fusion.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k" koanf:"top_k"`
	MinScore       float64 `yaml:"min_score" koanf:"min_score"`
	LexicalWeight  float64 `yaml:"lexical_weight" koanf:"lexical_weight"`
	VectorWeight   float64 `yaml:"vector_weight" koanf:"vector_weight"`
	RecencyWeight  float64 `yaml:"recency_weight" koanf:"recency_weight"`
	TimeoutSeconds int     `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// RoutingConfig tunes provider selection.
type RoutingConfig struct {
	Strategy       string  `yaml:"strategy" koanf:"strategy"`
	MaxCostUSD     float64 `yaml:"max_cost_usd" koanf:"max_cost_usd"`
	QualityFloor   int     `yaml:"quality_floor" koanf:"quality_floor"`
	MaxAttempts    int     `yaml:"max_attempts" koanf:"max_attempts"`
	Temperature    float64 `yaml:"temperature" koanf:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// ProviderEntry declares one generation backend candidate.
type ProviderEntry struct {
	ID      string       `yaml:"id" koanf:"id"`
	Type    ProviderType `yaml:"type" koanf:"type"`
	Model   string       `yaml:"model" koanf:"model"`
	Quality QualityTier  `yaml:"quality" koanf:"quality"`
	Primary bool         `yaml:"primary" koanf:"primary"`
	RPM     int          `yaml:"rpm" koanf:"rpm"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours" koanf:"ttl_hours"`
}

// IngestConfig controls knowledge-base ingestion.
type IngestConfig struct {
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	MaxChunkSize int      `yaml:"max_chunk_size" koanf:"max_chunk_size"`
}

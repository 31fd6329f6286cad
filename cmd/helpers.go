package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/cache"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/classify"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/config"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/db"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/embeddings"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/golden"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/guardrail"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/knowledge"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/llm"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/orchestrator"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/retrieval"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/router"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/vectordb"
)

// app bundles everything a command needs, wired once from config.
type app struct {
	cfg       *config.Config
	database  *db.DB
	store     *knowledge.Store
	vectors   *vectordb.Store
	epochs    *epoch.SQLResolver
	retriever *retrieval.Retriever
	engine    *orchestrator.Engine
}

func (a *app) Close() error {
	return a.database.Close()
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pratiko init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildEmbedder creates the embedding backend from config.
func buildEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	return embeddings.New(string(cfg.Embedding.Provider), cfg.Embedding.Model)
}

// buildApp wires the full pipeline from config. Every command that touches
// the stores or the engine goes through here.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.Storage.DataDir, "pratiko.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}
	vectors, err := vectordb.NewPersistent(filepath.Join(cfg.Storage.DataDir, "vectors"), embedder)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	store := knowledge.NewStore(database)
	epochs := epoch.NewSQLResolver(database)

	retriever := retrieval.New(store, retrieval.ChunkVectors{Store: vectors}, retrieval.Options{
		Weights: retrieval.Weights{
			Lexical: cfg.Retrieval.LexicalWeight,
			Vector:  cfg.Retrieval.VectorWeight,
			Recency: cfg.Retrieval.RecencyWeight,
		},
		TopK:          cfg.Retrieval.TopK,
		MinScore:      cfg.Retrieval.MinScore,
		SearchTimeout: time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
	})

	backends := make([]orchestrator.Backend, 0, len(cfg.Providers))
	for _, entry := range cfg.Providers {
		provider, err := llm.NewProvider(string(entry.Type), entry.Model)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("provider %s: %w", entry.ID, err)
		}
		if entry.RPM > 0 {
			provider = llm.NewRateLimitedProvider(provider, entry.RPM)
		}
		backends = append(backends, orchestrator.Backend{
			ID:          entry.ID,
			Model:       entry.Model,
			Provider:    provider,
			QualityTier: entry.Quality.Level(),
			Primary:     entry.Primary,
		})
	}

	rt := router.New(router.Options{
		Strategy:     router.Strategy(cfg.Routing.Strategy),
		BudgetUSD:    cfg.Routing.MaxCostUSD,
		QualityFloor: cfg.Routing.QualityFloor,
		MaxAttempts:  cfg.Routing.MaxAttempts,
	})

	engine := orchestrator.New(
		epochs,
		golden.NewResolver(golden.NewStore(database, vectors)),
		retriever,
		cache.NewStore(database),
		rt,
		&orchestrator.StaticSource{Backends: backends},
		classify.NewRuleBased(),
		buildTools(retriever),
		orchestrator.Config{
			Temperature: cfg.Routing.Temperature,
			CacheTTL:    time.Duration(cfg.Cache.TTLHours) * time.Hour,
		},
	)

	return &app{
		cfg:       cfg,
		database:  database,
		store:     store,
		vectors:   vectors,
		epochs:    epochs,
		retriever: retriever,
		engine:    engine,
	}, nil
}

// buildTools registers the model-callable tools. ricerca_normativa lets the
// model pull extra knowledge-base context mid-generation.
func buildTools(retriever *retrieval.Retriever) *guardrail.Registry {
	registry := guardrail.NewRegistry()
	registry.Register(llm.ToolDef{
		Name:        "ricerca_normativa",
		Description: "Search the Italian normative knowledge base for additional context. Use when the provided context does not cover the question.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query in Italian"}
			},
			"required": ["query"]
		}`),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Query == "" {
			return "", fmt.Errorf("query argument is required")
		}
		res, err := retriever.Retrieve(ctx, in.Query)
		if err != nil {
			return "", err
		}
		if len(res.Chunks) == 0 {
			return "Nessun documento rilevante trovato.", nil
		}
		var sb strings.Builder
		for _, c := range res.Chunks {
			fmt.Fprintf(&sb, "[%s] %s\n\n", c.Source, c.Content)
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	})
	return registry
}

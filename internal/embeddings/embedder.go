package embeddings

import (
	"context"
	"fmt"
	"os"
)

// Embedder generates vector embeddings for query and chunk text.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New creates an embedder for the given provider type and model.
// Supported providers: "openai", "ollama".
func New(provider, model string) (Embedder, error) {
	switch provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model)), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaEmbedder(model, 768, host), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}

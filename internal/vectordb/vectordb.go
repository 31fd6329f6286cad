// Package vectordb wraps chromem-go behind a small named-collection API.
// Two collections exist in practice: knowledge chunks for hybrid retrieval
// and published golden answers for semantic fast-path matching.
package vectordb

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/embeddings"
)

// Collection names used by the core.
const (
	CollectionChunks = "knowledge_chunks"
	CollectionGolden = "golden_answers"
)

// Doc is a document to index: free text plus flat string metadata.
type Doc struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Hit pairs an indexed document with its cosine similarity to the query.
type Hit struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// Store is a chromem-go database holding the core's vector collections.
type Store struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
}

// New creates an in-memory vector store using the given embedder.
func New(embedder embeddings.Embedder) *Store {
	return &Store{
		db:        chromem.NewDB(),
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

// NewPersistent creates a vector store persisted under dir.
func NewPersistent(dir string, embedder embeddings.Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", dir, err)
	}
	return &Store{
		db:        db,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}, nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	return col, nil
}

// Add indexes or re-indexes the given documents in the named collection.
func (s *Store) Add(ctx context.Context, collection string, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.collection(collection)
	if err != nil {
		return err
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromDocs[i] = chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}
	return col.AddDocuments(ctx, chromDocs, 1)
}

// Query returns up to k nearest documents in the named collection. An empty
// collection yields no hits rather than an error.
func (s *Store) Query(ctx context.Context, collection, query string, k int) ([]Hit, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of documents in the named collection.
func (s *Store) Count(collection string) int {
	col, err := s.collection(collection)
	if err != nil {
		return 0
	}
	return col.Count()
}

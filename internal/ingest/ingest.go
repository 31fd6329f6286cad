package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/mickgian/PratikoAi-BE-sub011/internal/epoch"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/knowledge"
	"github.com/mickgian/PratikoAi-BE-sub011/internal/vectordb"
)

// DefaultMaxFileSize is the maximum document size to process (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// Config controls one ingestion run.
type Config struct {
	Dir          string   // root directory of normative documents
	Include      []string // glob patterns, ** supported
	Exclude      []string
	MaxChunkSize int
	MaxFileSize  int64
	Quiet        bool // suppress the progress bar
}

// Stats summarizes a completed run.
type Stats struct {
	Files   int
	Chunks  int
	KBEpoch int64 // knowledge epoch after the bump
}

// Ingester walks a document tree and indexes every matching file into both
// the full-text store and the vector store.
type Ingester struct {
	store   *knowledge.Store
	vectors *vectordb.Store
	epochs  epoch.Resolver
	cfg     Config
}

// New creates an Ingester.
func New(store *knowledge.Store, vectors *vectordb.Store, epochs epoch.Resolver, cfg Config) *Ingester {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Ingester{store: store, vectors: vectors, epochs: epochs, cfg: cfg}
}

// Run discovers, chunks and indexes the documents, then bumps the knowledge
// epoch exactly once so every dependent cache entry invalidates together.
// Nothing is bumped when no file matched.
func (i *Ingester) Run(ctx context.Context) (Stats, error) {
	files, err := i.discover()
	if err != nil {
		return Stats{}, err
	}
	if len(files) == 0 {
		slog.Info("ingest found no matching documents", "dir", i.cfg.Dir)
		return Stats{}, nil
	}

	var bar *progressbar.ProgressBar
	if !i.cfg.Quiet {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Indexing documents"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	stats := Stats{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		n, err := i.ingestFile(ctx, f)
		if err != nil {
			return Stats{}, fmt.Errorf("ingesting %s: %w", f.relPath, err)
		}
		stats.Files++
		stats.Chunks += n
		if bar != nil {
			bar.Describe(f.relPath)
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	kb, err := i.epochs.Bump(ctx, epoch.KB)
	if err != nil {
		return Stats{}, fmt.Errorf("bumping knowledge epoch: %w", err)
	}
	stats.KBEpoch = kb

	slog.Info("ingestion complete",
		"files", stats.Files, "chunks", stats.Chunks, "kb_epoch", kb)
	return stats, nil
}

type fileEntry struct {
	path    string
	relPath string
	info    fs.FileInfo
}

func (i *Ingester) discover() ([]fileEntry, error) {
	root, err := filepath.Abs(i.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", i.cfg.Dir, err)
	}

	var files []fileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchesInclude(relPath, i.cfg.Include) || matchesExclude(relPath, i.cfg.Exclude) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > i.cfg.MaxFileSize {
			return nil
		}
		files = append(files, fileEntry{path: path, relPath: relPath, info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func (i *Ingester) ingestFile(ctx context.Context, f fileEntry) (int, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return 0, err
	}

	text := string(content)
	title := titleOf(text)
	pieces := chunkText(text, i.cfg.MaxChunkSize)
	if len(pieces) == 0 {
		return 0, nil
	}

	source := filepath.ToSlash(f.relPath)
	published := f.info.ModTime()

	chunks := make([]knowledge.Chunk, 0, len(pieces))
	docs := make([]vectordb.Doc, 0, len(pieces))
	for n, piece := range pieces {
		id := fmt.Sprintf("%s#%d", source, n)
		chunks = append(chunks, knowledge.Chunk{
			ID:          id,
			Source:      source,
			Title:       title,
			Content:     piece,
			PublishedAt: published,
		})
		docs = append(docs, vectordb.Doc{
			ID:      id,
			Content: piece,
			Metadata: map[string]string{
				"source": source,
				"title":  title,
			},
		})
	}

	if err := i.store.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	if err := i.vectors.Add(ctx, vectordb.CollectionChunks, docs); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

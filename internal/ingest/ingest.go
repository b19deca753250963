// Package ingest turns a reference document into an embedded corpus.
package ingest

import (
	"context"
	"fmt"

	"github.com/Yates-Labs/carebridge/internal/logging"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"go.uber.org/zap"
)

// Options controls extraction, chunking and embedding.
type Options struct {
	PageBatch    int
	ChunkSize    int
	ChunkOverlap int
	Index        rag.IndexOptions
}

// DefaultOptions returns the settings used for the reference corpus.
func DefaultOptions() Options {
	return Options{
		PageBatch:    DefaultPageBatch,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Index:        rag.DefaultIndexOptions(),
	}
}

// Chunks chunks every page batch independently and concatenates the results.
// Chunks never span two batches.
func Chunks(batches []PageBatch, opts Options, logger *zap.Logger) []string {
	logger = logging.OrNop(logger)

	var all []string
	for _, b := range batches {
		chunks := ChunkText(b.Text, opts.ChunkSize, opts.ChunkOverlap)
		if len(chunks) == 0 {
			continue
		}
		all = append(all, chunks...)
		logger.Info("processed pages",
			zap.Int("first_page", b.FirstPage),
			zap.Int("last_page", b.LastPage),
			zap.Int("chunks", len(chunks)),
		)
	}
	return all
}

// Run extracts the PDF at path, chunks it and embeds every chunk.
func Run(ctx context.Context, path string, embedder rag.Embedder, opts Options, logger *zap.Logger) (*rag.Corpus, error) {
	logger = logging.OrNop(logger)

	batches, err := ReadPDF(path, opts.PageBatch)
	if err != nil {
		return nil, err
	}
	logger.Info("opened reference pdf",
		zap.String("path", path),
		zap.Int("pages", batches[len(batches)-1].LastPage),
	)

	return BuildFromBatches(ctx, batches, embedder, opts, logger)
}

// BuildFromBatches chunks already extracted text and embeds it.
func BuildFromBatches(ctx context.Context, batches []PageBatch, embedder rag.Embedder, opts Options, logger *zap.Logger) (*rag.Corpus, error) {
	logger = logging.OrNop(logger)

	chunks := Chunks(batches, opts, logger)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: every fragment was too short", ErrNoText)
	}

	corpus, err := rag.BuildCorpus(ctx, chunks, embedder, opts.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}

	logger.Info("corpus built",
		zap.Int("chunks", corpus.Len()),
		zap.Int("dimension", corpus.Dimension),
		zap.String("model", corpus.Model),
	)
	return corpus, nil
}

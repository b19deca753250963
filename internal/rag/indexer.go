package rag

import (
	"context"
	"fmt"
)

// IndexOptions controls corpus building.
type IndexOptions struct {
	// BatchSize is the number of texts per embedding call
	BatchSize int
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize: 32,
	}
}

// BuildCorpus embeds texts in batches and assembles a validated corpus. Chunk
// ids follow the order of texts.
func BuildCorpus(ctx context.Context, texts []string, embedder Embedder, opts IndexOptions) (*Corpus, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	corpus := &Corpus{
		Model:  embedder.GetModel(),
		Chunks: make([]Chunk, 0, len(texts)),
	}

	for batchStart := 0; batchStart < len(texts); batchStart += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batchEnd := min(batchStart+opts.BatchSize, len(texts))
		batch := texts[batchStart:batchEnd]

		vectors, err := embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings for batch starting at %d: %w", batchStart, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(vectors), len(batch))
		}

		for i, text := range batch {
			corpus.Chunks = append(corpus.Chunks, Chunk{
				ID:        batchStart + i,
				Text:      text,
				Embedding: vectors[i],
			})
		}
	}

	corpus.Dimension = embedder.GetDimension()
	if corpus.Dimension <= 0 {
		corpus.Dimension = len(corpus.Chunks[0].Embedding)
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return corpus, nil
}

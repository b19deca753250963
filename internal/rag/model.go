package rag

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultTopK is the number of chunks retrieved per question
	DefaultTopK = 3

	// MaxSnippetChars bounds the text carried by a Result
	MaxSnippetChars = 1200

	// DefaultConfidenceThreshold is the single threshold below which retrieval
	// is considered unreliable and web search is consulted.
	DefaultConfidenceThreshold = 0.14
)

// Common errors for corpus and index operations
var (
	ErrEmptyCorpus       = errors.New("corpus contains no chunks")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrMalformedCorpus   = errors.New("malformed corpus")
)

// Chunk is one reference-text passage with its precomputed embedding.
// ID is the chunk's position in the corpus.
type Chunk struct {
	ID        int
	Text      string
	Embedding []float32
}

// Corpus is the reference corpus produced offline by the ingest command.
type Corpus struct {
	// Model identifies the embedding function that produced every vector
	Model string

	// Dimension is the shared length of all embeddings
	Dimension int

	Chunks []Chunk
}

// Validate checks the corpus is non-empty, positionally indexed and of a
// single embedding dimension.
func (c *Corpus) Validate() error {
	if c == nil || len(c.Chunks) == 0 {
		return ErrEmptyCorpus
	}
	if c.Model == "" {
		return fmt.Errorf("%w: missing embedding model", ErrMalformedCorpus)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrMalformedCorpus, c.Dimension)
	}
	for i, ch := range c.Chunks {
		if ch.ID != i {
			return fmt.Errorf("%w: chunk at position %d has id %d", ErrMalformedCorpus, i, ch.ID)
		}
		if len(ch.Embedding) != c.Dimension {
			return fmt.Errorf("%w: chunk %d has %d values, expected %d",
				ErrDimensionMismatch, i, len(ch.Embedding), c.Dimension)
		}
	}
	return nil
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}

// Result is one ranked retrieval hit.
type Result struct {
	ChunkID int     `json:"id"`
	Snippet string  `json:"snippet"` // at most MaxSnippetChars characters
	Score   float64 `json:"score"`   // cosine similarity, never NaN
}

// Source loads a corpus at process start.
type Source interface {
	Load(ctx context.Context) (*Corpus, error)
}

// Truncate returns the first n characters (not bytes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

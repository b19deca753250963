package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Index answers nearest-neighbour queries over an immutable corpus. It holds
// no mutable state after construction and is safe for concurrent use.
type Index struct {
	corpus   *Corpus
	norms    []float64
	embedder Embedder
}

// NewIndex validates corpus and pairs it with the embedder that produced it.
func NewIndex(corpus *Corpus, embedder Embedder) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	if embedder.GetDimension() != corpus.Dimension {
		return nil, fmt.Errorf("%w: embedder %s produces %d values, corpus has %d",
			ErrDimensionMismatch, embedder.GetModel(), embedder.GetDimension(), corpus.Dimension)
	}

	norms := make([]float64, len(corpus.Chunks))
	for i, ch := range corpus.Chunks {
		norms[i] = norm(ch.Embedding)
	}

	return &Index{
		corpus:   corpus,
		norms:    norms,
		embedder: embedder,
	}, nil
}

// Size returns the number of chunks in the corpus.
func (ix *Index) Size() int {
	return ix.corpus.Len()
}

// Model returns the corpus embedding model.
func (ix *Index) Model() string {
	return ix.corpus.Model
}

// Chunk returns the chunk with the given id.
func (ix *Index) Chunk(id int) (Chunk, bool) {
	if id < 0 || id >= len(ix.corpus.Chunks) {
		return Chunk{}, false
	}
	return ix.corpus.Chunks[id], true
}

// Retrieve embeds query and returns the topK most similar chunks. An empty
// query is allowed. topK <= 0 selects DefaultTopK; topK above the corpus size
// is clamped.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding generated for query")
	}
	if len(vectors[0]) != ix.corpus.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, corpus has %d",
			ErrDimensionMismatch, len(vectors[0]), ix.corpus.Dimension)
	}
	return ix.Rank(vectors[0], topK), nil
}

// Rank scores every chunk against vector and returns the best topK, ordered
// by descending score with ties broken by ascending chunk id.
func (ix *Index) Rank(vector []float32, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > len(ix.corpus.Chunks) {
		topK = len(ix.corpus.Chunks)
	}

	qNorm := norm(vector)
	scores := make([]float64, len(ix.corpus.Chunks))
	order := make([]int, len(ix.corpus.Chunks))
	for i, ch := range ix.corpus.Chunks {
		scores[i] = similarity(vector, ch.Embedding, qNorm, ix.norms[i])
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if sa != sb {
			return sa > sb
		}
		return order[a] < order[b]
	})

	results := make([]Result, topK)
	for i := 0; i < topK; i++ {
		id := order[i]
		results[i] = Result{
			ChunkID: id,
			Snippet: Truncate(ix.corpus.Chunks[id].Text, MaxSnippetChars),
			Score:   scores[id],
		}
	}
	return results
}

// Confidence maps ranked results to the scalar used for fallback routing: the
// top score, or 0 when nothing was retrieved.
func Confidence(results []Result) float64 {
	if len(results) == 0 {
		return 0.0
	}
	return results[0].Score
}

// Cosine returns the cosine similarity of a and b, coercing NaN and infinite
// values (zero-norm or malformed vectors) to 0.
func Cosine(a, b []float32) float64 {
	return similarity(a, b, norm(a), norm(b))
}

func similarity(a, b []float32, na, nb float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	s := dot / (na * nb)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

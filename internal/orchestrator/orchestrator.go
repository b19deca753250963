// Package orchestrator assembles and runs the clinical question pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/answer"
	"github.com/Yates-Labs/carebridge/internal/config"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/Yates-Labs/carebridge/internal/websearch"
	"go.uber.org/zap"
)

var ErrUnknownCorpusSource = errors.New("unknown corpus source")

// Config is everything Build needs to stand the pipeline up.
type Config struct {
	RAG RAGConfig

	// CorpusSource is "file" or "milvus"
	CorpusSource string
	CorpusPath   string
	Milvus       rag.MilvusConfig

	LLM       answer.LLMConfig
	WebSearch websearch.Config
}

// DefaultConfig reads every section from the environment.
func DefaultConfig() Config {
	return Config{
		RAG:          DefaultRAGConfig(),
		CorpusSource: config.String("CORPUS_SOURCE", "file"),
		CorpusPath:   config.String("CORPUS_PATH", "data/reference_embeddings.json"),
		Milvus:       rag.DefaultMilvusConfig(),
		LLM:          answer.DefaultLLMConfig(),
		WebSearch:    websearch.DefaultConfig(),
	}
}

// Source returns the configured corpus loader.
func (c Config) Source() (rag.Source, error) {
	switch strings.ToLower(c.CorpusSource) {
	case "", "file":
		return rag.FileSource{Path: c.CorpusPath}, nil
	case "milvus":
		return rag.MilvusSource{Config: c.Milvus}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want file or milvus)", ErrUnknownCorpusSource, c.CorpusSource)
	}
}

// Build loads the corpus, pairs it with the embedder that produced it and
// connects the optional web search and generative backends. Any failure here
// is fatal: the caller must not serve without a valid index.
func Build(ctx context.Context, cfg Config, logger *zap.Logger) (*RAGPipeline, *rag.Index, error) {
	source, err := cfg.Source()
	if err != nil {
		return nil, nil, err
	}
	corpus, err := source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	embedder, err := rag.NewEmbedder(rag.EmbedderConfig{
		Model:     corpus.Model,
		Dimension: corpus.Dimension,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder for corpus model %s: %w", corpus.Model, err)
	}

	index, err := rag.NewIndex(corpus, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index: %w", err)
	}

	var llm answer.LLM
	if cfg.LLM.Configured() {
		openaiLLM, err := answer.NewOpenAILLM(cfg.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create LLM: %w", err)
		}
		llm = openaiLLM
	}

	searcher, closeSearch := websearch.New(cfg.WebSearch, logger)

	pipeline, err := NewRAGPipeline(index, searcher, answer.NewSynthesizer(llm, logger), cfg.RAG, logger)
	if err != nil {
		closeSearch()
		return nil, nil, err
	}
	pipeline.closers = append(pipeline.closers, closeSearch)

	pipeline.logger.Info("clinical pipeline ready",
		zap.Int("chunks", index.Size()),
		zap.String("embedding_model", index.Model()),
		zap.Bool("generative", llm != nil),
		zap.Bool("web_search", searcher != nil),
		zap.Float64("confidence_threshold", pipeline.config.ConfidenceThreshold),
	)
	return pipeline, index, nil
}

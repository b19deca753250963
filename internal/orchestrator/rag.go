package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Yates-Labs/carebridge/internal/answer"
	"github.com/Yates-Labs/carebridge/internal/config"
	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/logging"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/Yates-Labs/carebridge/internal/websearch"
	"go.uber.org/zap"
)

// RAGConfig holds the routing parameters of the clinical pipeline.
type RAGConfig struct {
	// TopK is the number of reference chunks retrieved per question
	TopK int

	// ConfidenceThreshold is the top score below which web search is consulted
	ConfidenceThreshold float64

	// WebMaxResults caps the web results added to the evidence
	WebMaxResults int
}

// DefaultRAGConfig reads RAG_TOP_K, RAG_CONFIDENCE_THRESHOLD and
// WEB_SEARCH_MAX_RESULTS.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		TopK:                config.Int("RAG_TOP_K", rag.DefaultTopK),
		ConfidenceThreshold: config.Float("RAG_CONFIDENCE_THRESHOLD", rag.DefaultConfidenceThreshold),
		WebMaxResults:       config.Int("WEB_SEARCH_MAX_RESULTS", websearch.DefaultMaxResults),
	}
}

// Retriever returns ranked reference chunks for a query. *rag.Index
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]rag.Result, error)
}

// Answer is the pipeline's reply to one clinical question.
type Answer struct {
	// Text always ends with the disclaimer line
	Text      string
	Citations []evidence.Citation

	Outcome    answer.Outcome
	Confidence float64

	// UsedWeb is true when web results were added to the evidence
	UsedWeb bool
}

// RAGPipeline answers clinical questions: retrieval, confidence routing, web
// fallback, prompt composition and synthesis.
type RAGPipeline struct {
	config      RAGConfig
	retriever   Retriever
	searcher    websearch.Searcher
	synthesizer *answer.Synthesizer
	logger      *zap.Logger
	closers     []func()
}

// NewRAGPipeline wires the stages together. searcher may be nil, which
// disables the web fallback.
func NewRAGPipeline(retriever Retriever, searcher websearch.Searcher, synthesizer *answer.Synthesizer, config RAGConfig, logger *zap.Logger) (*RAGPipeline, error) {
	if retriever == nil {
		return nil, errors.New("retriever cannot be nil")
	}
	if synthesizer == nil {
		return nil, errors.New("synthesizer cannot be nil")
	}
	if config.TopK <= 0 {
		config.TopK = rag.DefaultTopK
	}
	if config.WebMaxResults <= 0 {
		config.WebMaxResults = websearch.DefaultMaxResults
	}
	return &RAGPipeline{
		config:      config,
		retriever:   retriever,
		searcher:    searcher,
		synthesizer: synthesizer,
		logger:      logging.OrNop(logger),
	}, nil
}

// Close releases resources acquired by Build.
func (p *RAGPipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

// Generative reports whether answers come from a model backend.
func (p *RAGPipeline) Generative() bool {
	return p.synthesizer.Generative()
}

// AnswerQuestion runs the full pipeline. Upstream failures degrade the answer
// instead of failing it.
func (p *RAGPipeline) AnswerQuestion(ctx context.Context, patientSummary, question, patientID string) *Answer {
	log := p.logger.With(zap.String("patient_id", patientID))
	log.Info("clinical question", zap.String("question", question))

	// Stage 1: Retrieval
	results, err := p.retriever.Retrieve(ctx, question, p.config.TopK)
	if err != nil {
		log.Error("retrieval failed, continuing without references", zap.Error(err))
		results = nil
	}
	confidence := rag.Confidence(results)
	log.Info("retrieved reference chunks",
		zap.Int("count", len(results)),
		zap.Float64("confidence", confidence),
	)

	// Stage 2: Web fallback on low confidence
	var web []websearch.Result
	if confidence < p.config.ConfidenceThreshold {
		web = p.searchWeb(ctx, log, question, confidence)
	}

	// Stage 3: Evidence, prompt and synthesis
	bundle := evidence.NewBundle(results, web)
	prompt := evidence.ComposePrompt(patientSummary, question, bundle)
	outcome := p.synthesizer.Synthesize(ctx, prompt, bundle)

	citations := evidence.Citations(bundle)
	ids := make([]string, len(citations))
	for i, c := range citations {
		if c.ChunkID != nil {
			ids[i] = fmt.Sprintf("%d", *c.ChunkID)
		} else {
			ids[i] = "web"
		}
	}
	log.Info("clinical answer ready",
		zap.Strings("sources", ids),
		zap.Bool("used_web", len(web) > 0),
		zap.String("outcome", outcomeLabel(outcome)),
	)

	return &Answer{
		Text:       outcome.Text(),
		Citations:  citations,
		Outcome:    outcome,
		Confidence: confidence,
		UsedWeb:    len(web) > 0,
	}
}

func (p *RAGPipeline) searchWeb(ctx context.Context, log *zap.Logger, question string, confidence float64) []websearch.Result {
	if p.searcher == nil {
		log.Info("low retrieval confidence but web search is disabled", zap.Float64("confidence", confidence))
		return nil
	}
	log.Info("low retrieval confidence, triggering web search",
		zap.Float64("confidence", confidence),
		zap.Float64("threshold", p.config.ConfidenceThreshold),
	)
	web, err := p.searcher.Search(ctx, question, p.config.WebMaxResults)
	if err != nil {
		log.Warn("web search failed", zap.Error(err))
		return nil
	}
	if len(web) > p.config.WebMaxResults {
		web = web[:p.config.WebMaxResults]
	}
	log.Info("web search returned", zap.Int("count", len(web)))
	return web
}

func outcomeLabel(o answer.Outcome) string {
	switch v := o.(type) {
	case answer.Generated:
		return "generated"
	case answer.Degraded:
		return "degraded:" + string(v.Reason)
	default:
		return "unknown"
	}
}

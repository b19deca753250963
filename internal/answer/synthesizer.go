package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/logging"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"go.uber.org/zap"
)

// NoEvidenceMessage is the degraded answer when nothing was found anywhere.
const NoEvidenceMessage = "No information found in references or web search. Recommend follow-up with a clinician."

// degradedSnippetChars bounds each excerpt in a degraded answer.
const degradedSnippetChars = 400

// Reason explains why an answer was produced without the model.
type Reason string

const (
	ReasonNoBackend     Reason = "no_backend"
	ReasonBackendFailed Reason = "backend_failed"
)

// Outcome is either Generated or Degraded.
type Outcome interface {
	// Text is the full answer, ending with the disclaimer line
	Text() string
	isOutcome()
}

// Generated is a model-written answer.
type Generated struct {
	Answer string
}

// Degraded is an excerpt digest built without the model.
type Degraded struct {
	Answer string
	Reason Reason
}

func (g Generated) Text() string { return g.Answer }
func (d Degraded) Text() string  { return d.Answer }
func (Generated) isOutcome()     {}
func (Degraded) isOutcome()      {}

// Synthesizer produces the final answer text. A nil LLM means degraded mode
// for every request.
type Synthesizer struct {
	llm    LLM
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer; llm may be nil.
func NewSynthesizer(llm LLM, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		llm:    llm,
		logger: logging.OrNop(logger),
	}
}

// Generative reports whether a model backend is configured.
func (s *Synthesizer) Generative() bool {
	return s.llm != nil
}

// Synthesize answers from prompt when a backend is available, otherwise (or
// when the backend fails) from the bundle directly. It never fails.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string, bundle evidence.Bundle) Outcome {
	if s.llm == nil {
		return Degraded{Answer: DegradedAnswer(bundle), Reason: ReasonNoBackend}
	}

	s.logger.Info("calling generative backend",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("references", len(bundle.References())),
		zap.Int("web", len(bundle.Web())),
	)

	text, err := s.generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty completion", ErrLLMFailed)
	}
	if err != nil {
		s.logger.Error("generative backend failed, using degraded answer", zap.Error(err))
		return Degraded{Answer: DegradedAnswer(bundle), Reason: ReasonBackendFailed}
	}

	return Generated{Answer: WithDisclaimer(text)}
}

// generate calls the backend, converting a panic into ErrLLMFailed.
func (s *Synthesizer) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generative backend panicked", zap.Any("panic", r), zap.Stack("stack"))
			text, err = "", fmt.Errorf("%w: panic: %v", ErrLLMFailed, r)
		}
	}()
	return s.llm.Generate(ctx, SystemInstruction, prompt)
}

// DegradedAnswer lists the top reference excerpts and web results, or the
// no-evidence message, followed by the disclaimer.
func DegradedAnswer(bundle evidence.Bundle) string {
	var b strings.Builder

	if refs := bundle.References(); len(refs) > 0 {
		b.WriteString("Top reference excerpts:\n\n")
		for i, r := range refs {
			b.WriteString(fmt.Sprintf("[Source %d] (score=%.4f) %s...\n\n",
				i+1, r.Score, rag.Truncate(r.Snippet, degradedSnippetChars)))
		}
	}

	if web := bundle.Web(); len(web) > 0 {
		b.WriteString("Web search results:\n\n")
		for i, w := range web {
			b.WriteString(evidence.FormatWeb(i+1, w))
		}
	}

	if bundle.Empty() {
		b.WriteString(NoEvidenceMessage + "\n\n")
	}

	b.WriteString(evidence.Disclaimer)
	return b.String()
}

// WithDisclaimer makes the disclaimer the final line of text exactly once,
// dropping a copy the model already appended.
func WithDisclaimer(text string) string {
	body := strings.TrimSpace(text)
	trimmed := strings.TrimRight(body, " \t\r\n\"'*")
	if strings.HasSuffix(trimmed, evidence.Disclaimer) {
		body = strings.TrimRight(strings.TrimSuffix(trimmed, evidence.Disclaimer), " \t\r\n\"'*")
	}
	if body == "" {
		return evidence.Disclaimer
	}
	return body + "\n\n" + evidence.Disclaimer
}

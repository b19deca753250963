package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/Yates-Labs/carebridge/internal/websearch"
)

func testBundle() evidence.Bundle {
	return evidence.NewBundle(
		[]rag.Result{
			{ChunkID: 7, Snippet: "Patients with CKD should limit sodium to 2 g daily.", Score: 0.4213},
			{ChunkID: 2, Snippet: strings.Repeat("k", 600), Score: 0.2},
		},
		[]websearch.Result{
			{Title: "Fluid restriction", Snippet: "Track all drinks.", URL: "https://example.org/fluids"},
		},
	)
}

func endsWithDisclaimer(t *testing.T, text string) {
	t.Helper()
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] != evidence.Disclaimer {
		t.Errorf("expected final line to be the disclaimer, got %q", lines[len(lines)-1])
	}
	if n := strings.Count(text, evidence.Disclaimer); n != 1 {
		t.Errorf("expected exactly one disclaimer, found %d", n)
	}
}

func TestSynthesize_NoBackend(t *testing.T) {
	s := NewSynthesizer(nil, nil)
	if s.Generative() {
		t.Error("expected degraded synthesizer")
	}

	out := s.Synthesize(context.Background(), "prompt", testBundle())
	deg, ok := out.(Degraded)
	if !ok {
		t.Fatalf("expected Degraded outcome, got %T", out)
	}
	if deg.Reason != ReasonNoBackend {
		t.Errorf("expected reason %s, got %s", ReasonNoBackend, deg.Reason)
	}

	text := out.Text()
	wants := []string{
		"Top reference excerpts:\n\n",
		"[Source 1] (score=0.4213) Patients with CKD should limit sodium to 2 g daily....\n\n",
		"[Source 2] (score=0.2000) " + strings.Repeat("k", 400) + "...\n\n",
		"Web search results:\n\n",
		"[Web 1] Fluid restriction - https://example.org/fluids\nTrack all drinks.\n\n",
	}
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Errorf("degraded answer missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, strings.Repeat("k", 401)) {
		t.Error("expected excerpt bounded to 400 characters")
	}
	if strings.Contains(text, NoEvidenceMessage) {
		t.Error("no-evidence message should only appear with an empty bundle")
	}
	endsWithDisclaimer(t, text)
}

func TestSynthesize_EmptyBundle(t *testing.T) {
	s := NewSynthesizer(nil, nil)
	out := s.Synthesize(context.Background(), "prompt", evidence.NewBundle(nil, nil))

	want := NoEvidenceMessage + "\n\n" + evidence.Disclaimer
	if out.Text() != want {
		t.Errorf("expected %q, got %q", want, out.Text())
	}
}

func TestSynthesize_WebOnly(t *testing.T) {
	bundle := evidence.NewBundle(nil, []websearch.Result{{Snippet: "Only a snippet."}})
	text := DegradedAnswer(bundle)

	if strings.Contains(text, "Top reference excerpts") {
		t.Error("unexpected reference section")
	}
	if !strings.HasPrefix(text, "Web search results:\n\n[Web 1]\nOnly a snippet.\n\n") {
		t.Errorf("unexpected web-only answer:\n%s", text)
	}
	endsWithDisclaimer(t, text)
}

func TestSynthesize_Generated(t *testing.T) {
	llm := NewMockLLM("Limit sodium [Source 1].")
	s := NewSynthesizer(llm, nil)

	out := s.Synthesize(context.Background(), "the prompt", testBundle())
	gen, ok := out.(Generated)
	if !ok {
		t.Fatalf("expected Generated outcome, got %T", out)
	}
	if gen.Text() != "Limit sodium [Source 1].\n\n"+evidence.Disclaimer {
		t.Errorf("unexpected text: %q", gen.Text())
	}
	if llm.LastSystem() != SystemInstruction {
		t.Errorf("expected system instruction, got %q", llm.LastSystem())
	}
	if llm.LastPrompt() != "the prompt" {
		t.Errorf("expected prompt passed through, got %q", llm.LastPrompt())
	}
}

func TestSynthesize_BackendFailure(t *testing.T) {
	tests := []struct {
		name string
		llm  *MockLLM
	}{
		{"error", NewMockLLMWithError(errors.New("connection refused"))},
		{"blank completion", NewMockLLM("   \n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(tt.llm, nil)
			out := s.Synthesize(context.Background(), "prompt", testBundle())

			deg, ok := out.(Degraded)
			if !ok {
				t.Fatalf("expected Degraded outcome, got %T", out)
			}
			if deg.Reason != ReasonBackendFailed {
				t.Errorf("expected reason %s, got %s", ReasonBackendFailed, deg.Reason)
			}
			if deg.Text() != DegradedAnswer(testBundle()) {
				t.Error("expected the same digest as no-backend mode")
			}
			if tt.llm.Calls() != 1 {
				t.Errorf("expected one backend call, got %d", tt.llm.Calls())
			}
		})
	}
}

// panickingLLM implements LLM and panics on every call
type panickingLLM struct{}

func (panickingLLM) Generate(context.Context, string, string) (string, error) {
	panic("backend exploded")
}

func TestSynthesize_BackendPanicDegrades(t *testing.T) {
	s := NewSynthesizer(panickingLLM{}, nil)

	var out Outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Synthesize panicked: %v", r)
			}
		}()
		out = s.Synthesize(context.Background(), "prompt", testBundle())
	}()

	deg, ok := out.(Degraded)
	if !ok {
		t.Fatalf("expected Degraded outcome, got %T", out)
	}
	if deg.Reason != ReasonBackendFailed {
		t.Errorf("expected reason %s, got %s", ReasonBackendFailed, deg.Reason)
	}
	if deg.Text() != DegradedAnswer(testBundle()) {
		t.Error("expected the excerpt digest after a backend panic")
	}
	endsWithDisclaimer(t, deg.Text())
}

func TestWithDisclaimer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"appended", "Drink less.", "Drink less.\n\n" + evidence.Disclaimer},
		{"model already added", "Drink less.\n\n" + evidence.Disclaimer, "Drink less.\n\n" + evidence.Disclaimer},
		{"quoted by model", "Drink less.\n\"" + evidence.Disclaimer + "\"\n", "Drink less.\n\n" + evidence.Disclaimer},
		{"bold by model", "Drink less.\n\n**" + evidence.Disclaimer + "**", "Drink less.\n\n" + evidence.Disclaimer},
		{"only disclaimer", evidence.Disclaimer, evidence.Disclaimer},
		{"mid-text mention kept", evidence.Disclaimer + " Also rest.", evidence.Disclaimer + " Also rest.\n\n" + evidence.Disclaimer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithDisclaimer(tt.in); got != tt.want {
				t.Errorf("WithDisclaimer(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultLLMConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("LLM_MAX_TOKENS", "")
	t.Setenv("LLM_TIMEOUT", "")

	cfg := DefaultLLMConfig()
	if cfg.Model != "gpt-3.5-turbo" {
		t.Errorf("expected gpt-3.5-turbo, got %s", cfg.Model)
	}
	if cfg.MaxTokens != 500 || cfg.Temperature != 0 {
		t.Errorf("expected 500 tokens at temperature 0, got %d/%v", cfg.MaxTokens, cfg.Temperature)
	}
	if cfg.Configured() {
		t.Error("expected unconfigured backend without API key")
	}

	if _, err := NewOpenAILLM(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg.APIKey = "sk-test"
	if !cfg.Configured() {
		t.Error("expected configured backend with API key")
	}
	if _, err := NewOpenAILLM(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Model = ""
	if _, err := NewOpenAILLM(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for missing model, got %v", err)
	}
}

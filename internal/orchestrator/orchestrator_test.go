package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Yates-Labs/carebridge/internal/answer"
	"github.com/Yates-Labs/carebridge/internal/evidence"
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/Yates-Labs/carebridge/internal/websearch"
)

func writeHashCorpus(t *testing.T, texts ...string) string {
	t.Helper()
	embedder := rag.NewHashEmbedder(256)
	vectors, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	corpus := &rag.Corpus{Model: embedder.GetModel(), Dimension: embedder.GetDimension()}
	for i, text := range texts {
		corpus.Chunks = append(corpus.Chunks, rag.Chunk{ID: i, Text: text, Embedding: vectors[i]})
	}
	path := filepath.Join(t.TempDir(), "reference_embeddings.json")
	if err := rag.SaveCorpus(path, corpus); err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}
	return path
}

func offlineConfig(corpusPath string) Config {
	return Config{
		RAG:          RAGConfig{TopK: 3, ConfidenceThreshold: rag.DefaultConfidenceThreshold, WebMaxResults: 3},
		CorpusSource: "file",
		CorpusPath:   corpusPath,
		LLM:          answer.LLMConfig{Model: "gpt-3.5-turbo"},
		WebSearch:    websearch.Config{Enabled: false},
	}
}

func TestBuild_OfflineFileCorpus(t *testing.T) {
	path := writeHashCorpus(t,
		"Patients with chronic kidney disease should limit sodium intake.",
		"Nephrotic syndrome presents with heavy proteinuria and edema.",
		"Acute kidney injury is an abrupt decline in kidney function.",
		"Hemodialysis removes waste products from the blood.",
	)

	pipeline, index, err := Build(context.Background(), offlineConfig(path), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer pipeline.Close()

	if index.Size() != 4 || index.Model() != rag.HashModel {
		t.Errorf("unexpected index: size=%d model=%s", index.Size(), index.Model())
	}
	if pipeline.Generative() {
		t.Error("expected degraded pipeline without an API key")
	}

	ans := pipeline.AnswerQuestion(context.Background(), "summary", "nephrotic syndrome proteinuria edema", "P001")
	if len(ans.Citations) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(ans.Citations))
	}
	if *ans.Citations[0].ChunkID != 1 {
		t.Errorf("expected the nephrotic syndrome chunk first, got %d", *ans.Citations[0].ChunkID)
	}
	if !strings.HasPrefix(ans.Text, "Top reference excerpts:") || !strings.HasSuffix(ans.Text, evidence.Disclaimer) {
		t.Errorf("unexpected degraded answer:\n%s", ans.Text)
	}
}

func TestBuild_Failures(t *testing.T) {
	path := writeHashCorpus(t, "one chunk")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.CorpusSource = "s3" },
			wantErr: ErrUnknownCorpusSource,
		},
		{
			name:   "missing corpus file",
			mutate: func(c *Config) { c.CorpusPath = filepath.Join(t.TempDir(), "absent.json") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(path)
			tt.mutate(&cfg)
			_, _, err := Build(context.Background(), cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuild_RemoteEmbeddingCorpusNeedsKey(t *testing.T) {
	corpus := &rag.Corpus{
		Model:     "text-embedding-3-small",
		Dimension: 2,
		Chunks:    []rag.Chunk{{ID: 0, Text: "x", Embedding: []float32{1, 0}}},
	}
	path := filepath.Join(t.TempDir(), "c.json")
	if err := rag.SaveCorpus(path, corpus); err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}

	_, _, err := Build(context.Background(), offlineConfig(path), nil)
	if !errors.Is(err, rag.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestConfigSource(t *testing.T) {
	cfg := Config{CorpusSource: "MILVUS", Milvus: rag.MilvusConfig{CollectionName: "refs"}}
	src, err := cfg.Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if m, ok := src.(rag.MilvusSource); !ok || m.Config.CollectionName != "refs" {
		t.Errorf("expected MilvusSource for refs, got %#v", src)
	}

	cfg = Config{CorpusPath: "data/x.json"}
	src, err = cfg.Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if f, ok := src.(rag.FileSource); !ok || f.Path != "data/x.json" {
		t.Errorf("expected FileSource default, got %#v", src)
	}
}

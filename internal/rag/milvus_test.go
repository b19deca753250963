package rag

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// TestDefaultMilvusConfig tests default configuration
func TestDefaultMilvusConfig(t *testing.T) {
	t.Setenv("MILVUS_ADDRESS", "")
	t.Setenv("MILVUS_COLLECTION", "")
	config := DefaultMilvusConfig()

	if config.Address != "localhost:19530" {
		t.Errorf("Expected localhost:19530, got %s", config.Address)
	}
	if config.CollectionName != "reference_chunks" {
		t.Errorf("Expected reference_chunks, got %s", config.CollectionName)
	}
	if config.M != 16 || config.EfConstruction != 256 {
		t.Errorf("Expected HNSW params 16/256, got %d/%d", config.M, config.EfConstruction)
	}

	t.Setenv("MILVUS_COLLECTION", "nephrology")
	if got := DefaultMilvusConfig().CollectionName; got != "nephrology" {
		t.Errorf("Expected collection override, got %s", got)
	}
}

func TestVectorDimension(t *testing.T) {
	schema := &entity.Schema{
		Fields: []*entity.Field{
			{Name: fieldChunkID, DataType: entity.FieldTypeInt64},
			{Name: fieldEmbedding, DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": "384"}},
		},
	}
	dim, err := vectorDimension(schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dim != 384 {
		t.Errorf("Expected 384, got %d", dim)
	}

	if _, err := vectorDimension(&entity.Schema{}); err == nil {
		t.Error("Expected error for schema without embedding field")
	}
	if _, err := vectorDimension(nil); err == nil {
		t.Error("Expected error for nil schema")
	}
}

func TestMilvusWriter_RejectsInvalidCorpus(t *testing.T) {
	w := MilvusWriter{Config: DefaultMilvusConfig()}
	if err := w.Write(context.Background(), &Corpus{}); err != ErrEmptyCorpus {
		t.Errorf("Expected ErrEmptyCorpus before connecting, got %v", err)
	}
}

func TestPageExpr(t *testing.T) {
	tests := []struct {
		lo, size int64
		want     string
	}{
		{0, 1000, "chunk_id >= 0 && chunk_id < 1000"},
		{16000, 1000, "chunk_id >= 16000 && chunk_id < 17000"},
		{99000, 1000, "chunk_id >= 99000 && chunk_id < 100000"},
	}
	for _, tt := range tests {
		if got := pageExpr(tt.lo, tt.size); got != tt.want {
			t.Errorf("pageExpr(%d, %d) = %q, want %q", tt.lo, tt.size, got, tt.want)
		}
	}
}

// Windows are contiguous and non-overlapping, so every id is read exactly once.
func TestPageExpr_CoversIDsPastQueryWindow(t *testing.T) {
	const total = 20000
	seen := make([]int, total)
	for lo := int64(0); lo < total; lo += queryPageSize {
		for id := lo; id < lo+queryPageSize && id < total; id++ {
			seen[id]++
		}
		want := fmt.Sprintf("%s >= %d && %s < %d", fieldChunkID, lo, fieldChunkID, lo+queryPageSize)
		if got := pageExpr(lo, queryPageSize); got != want {
			t.Fatalf("window at %d: got %q", lo, got)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("id %d covered %d times", id, n)
		}
	}
}

// Integration test: a corpus larger than Milvus' offset+limit cap loads in full
func TestMilvus_Integration_LargeCorpus(t *testing.T) {
	if testing.Short() || os.Getenv("MILVUS_ADDRESS") == "" {
		t.Skip("Skipping integration test (MILVUS_ADDRESS not set)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	config := DefaultMilvusConfig()
	config.CollectionName = fmt.Sprintf("carebridge_large_%d", time.Now().UnixNano())

	const total = 17000
	embedder := NewHashEmbedder(4)
	corpus := &Corpus{Model: embedder.GetModel(), Dimension: embedder.GetDimension()}
	for i := 0; i < total; i++ {
		corpus.Chunks = append(corpus.Chunks, Chunk{
			ID:        i,
			Text:      fmt.Sprintf("chunk %d", i),
			Embedding: embedder.embedOne(fmt.Sprintf("chunk %d", i)),
		})
	}

	if err := (MilvusWriter{Config: config}).Write(ctx, corpus); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	loaded, err := MilvusSource{Config: config}.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != total {
		t.Fatalf("Expected %d chunks, got %d", total, loaded.Len())
	}
	if last := loaded.Chunks[total-1]; last.ID != total-1 || last.Text != fmt.Sprintf("chunk %d", total-1) {
		t.Errorf("unexpected last chunk %+v", last)
	}
}

// Integration test: write a corpus and read it back
func TestMilvus_Integration_RoundTrip(t *testing.T) {
	if testing.Short() || os.Getenv("MILVUS_ADDRESS") == "" {
		t.Skip("Skipping integration test (MILVUS_ADDRESS not set)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	config := DefaultMilvusConfig()
	config.CollectionName = fmt.Sprintf("carebridge_test_%d", time.Now().UnixNano())

	embedder := NewHashEmbedder(16)
	texts := []string{"proteinuria", "edema of the legs", "serum creatinine"}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	corpus := &Corpus{Model: embedder.GetModel(), Dimension: embedder.GetDimension()}
	for i, text := range texts {
		corpus.Chunks = append(corpus.Chunks, Chunk{ID: i, Text: text, Embedding: vectors[i]})
	}

	if err := (MilvusWriter{Config: config}).Write(ctx, corpus); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := MilvusSource{Config: config}.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Model != HashModel {
		t.Errorf("Expected model %s, got %s", HashModel, loaded.Model)
	}
	if loaded.Len() != len(texts) {
		t.Fatalf("Expected %d chunks, got %d", len(texts), loaded.Len())
	}
	for i, ch := range loaded.Chunks {
		if ch.Text != texts[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, texts[i], ch.Text)
		}
	}
}

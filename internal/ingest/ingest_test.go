package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Yates-Labs/carebridge/internal/rag"
)

func TestChunkText(t *testing.T) {
	long := strings.Repeat("a", 2000)

	tests := []struct {
		name      string
		text      string
		size      int
		overlap   int
		wantCount int
		wantLens  []int
	}{
		{
			name:      "windows advance by size minus overlap",
			text:      long,
			size:      900,
			overlap:   200,
			wantCount: 3,
			wantLens:  []int{900, 900, 600},
		},
		{
			name:      "short text dropped",
			text:      "too short to keep",
			size:      900,
			overlap:   200,
			wantCount: 0,
		},
		{
			name:      "exactly fifty characters dropped",
			text:      strings.Repeat("b", 50),
			size:      900,
			overlap:   200,
			wantCount: 0,
		},
		{
			name:      "fifty one characters kept",
			text:      "   " + strings.Repeat("b", 51) + "\n\n",
			size:      900,
			overlap:   200,
			wantCount: 1,
			wantLens:  []int{51},
		},
		{
			name:      "empty",
			text:      "",
			size:      900,
			overlap:   200,
			wantCount: 0,
		},
		{
			name:      "overlap not smaller than size falls back to no overlap",
			text:      strings.Repeat("c", 200),
			size:      100,
			overlap:   100,
			wantCount: 2,
			wantLens:  []int{100, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, tt.size, tt.overlap)
			if len(chunks) != tt.wantCount {
				t.Fatalf("expected %d chunks, got %d", tt.wantCount, len(chunks))
			}
			for i, want := range tt.wantLens {
				if got := len([]rune(chunks[i])); got != want {
					t.Errorf("chunk %d: expected %d chars, got %d", i, want, got)
				}
			}
		})
	}
}

func TestChunkText_OverlapSharesText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 1600; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := ChunkText(text, 900, 200)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1] != text[700:1600] {
		t.Error("expected second chunk to start 700 characters in")
	}
	if chunks[0][700:] != chunks[1][:200] {
		t.Error("expected consecutive chunks to share 200 characters")
	}
}

func TestChunkText_MultibyteCharacters(t *testing.T) {
	text := strings.Repeat("é", 1000)
	chunks := ChunkText(text, 900, 200)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if n := len([]rune(chunks[0])); n != 900 {
		t.Errorf("expected 900 characters, got %d", n)
	}
}

func TestBuildFromBatches(t *testing.T) {
	batches := []PageBatch{
		{FirstPage: 1, LastPage: 20, Text: strings.Repeat("kidney function declines slowly. ", 40) + "\n"},
		{FirstPage: 21, LastPage: 40, Text: "\n\n"},
		{FirstPage: 41, LastPage: 45, Text: strings.Repeat("dialysis removes waste. ", 10) + "\n"},
	}
	opts := DefaultOptions()
	opts.Index.BatchSize = 2

	corpus, err := BuildFromBatches(context.Background(), batches, rag.NewHashEmbedder(256), opts, nil)
	if err != nil {
		t.Fatalf("BuildFromBatches: %v", err)
	}

	wantChunks := len(ChunkText(batches[0].Text, 900, 200)) + len(ChunkText(batches[2].Text, 900, 200))
	if corpus.Len() != wantChunks {
		t.Errorf("expected %d chunks, got %d", wantChunks, corpus.Len())
	}
	if corpus.Model != rag.HashModel || corpus.Dimension != 256 {
		t.Errorf("unexpected corpus metadata %s/%d", corpus.Model, corpus.Dimension)
	}
	last := corpus.Chunks[corpus.Len()-1]
	if !strings.HasPrefix(last.Text, "dialysis") {
		t.Errorf("expected last chunk from the final batch, got %q", last.Text)
	}

	// The built corpus must round-trip and serve retrieval.
	path := filepath.Join(t.TempDir(), "refs.json")
	if err := rag.SaveCorpus(path, corpus); err != nil {
		t.Fatalf("SaveCorpus: %v", err)
	}
	loaded, err := rag.FileSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	index, err := rag.NewIndex(loaded, rag.NewHashEmbedder(256))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	results, err := index.Retrieve(context.Background(), "dialysis waste", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results[0].ChunkID != last.ID {
		t.Errorf("expected dialysis chunk %d first, got %d", last.ID, results[0].ChunkID)
	}
}

func TestBuildFromBatches_NothingUsable(t *testing.T) {
	batches := []PageBatch{{FirstPage: 1, LastPage: 1, Text: "tiny"}}
	_, err := BuildFromBatches(context.Background(), batches, rag.NewHashEmbedder(8), DefaultOptions(), nil)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestReadPDF_MissingFile(t *testing.T) {
	if _, err := ReadPDF(filepath.Join(t.TempDir(), "absent.pdf"), 20); err == nil {
		t.Error("expected error for missing pdf")
	}
}

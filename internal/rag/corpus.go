package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// corpusFile is the on-disk artifact written by the ingest command.
type corpusFile struct {
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
}

// FileSource loads a corpus from a JSON artifact on disk.
type FileSource struct {
	Path string
}

// Load reads and validates the artifact.
func (s FileSource) Load(_ context.Context) (*Corpus, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s (run the ingest command first): %w", s.Path, err)
	}
	defer f.Close()

	corpus, err := ReadCorpus(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus %s: %w", s.Path, err)
	}
	return corpus, nil
}

// ReadCorpus decodes and validates a corpus artifact.
func ReadCorpus(r io.Reader) (*Corpus, error) {
	var file corpusFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorpus, err)
	}
	if len(file.Chunks) != len(file.Embeddings) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings",
			ErrMalformedCorpus, len(file.Chunks), len(file.Embeddings))
	}

	corpus := &Corpus{
		Model:     file.Model,
		Dimension: file.Dimension,
		Chunks:    make([]Chunk, len(file.Chunks)),
	}
	for i, text := range file.Chunks {
		corpus.Chunks[i] = Chunk{ID: i, Text: text, Embedding: file.Embeddings[i]}
	}

	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return corpus, nil
}

// WriteCorpus encodes corpus in the artifact format.
func WriteCorpus(w io.Writer, corpus *Corpus) error {
	if err := corpus.Validate(); err != nil {
		return err
	}
	file := corpusFile{
		Model:      corpus.Model,
		Dimension:  corpus.Dimension,
		Chunks:     make([]string, len(corpus.Chunks)),
		Embeddings: make([][]float32, len(corpus.Chunks)),
	}
	for i, ch := range corpus.Chunks {
		file.Chunks[i] = ch.Text
		file.Embeddings[i] = ch.Embedding
	}
	return json.NewEncoder(w).Encode(file)
}

// SaveCorpus writes corpus to path, creating parent directories.
func SaveCorpus(path string, corpus *Corpus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create corpus file: %w", err)
	}
	if err := WriteCorpus(f, corpus); err != nil {
		f.Close()
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	return f.Close()
}

package ingest

import "strings"

// Chunking defaults for reference text.
const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 200

	// MinChunkChars is the stripped length a fragment must exceed to be kept
	MinChunkChars = 50
)

// ChunkText splits text into windows of size characters advancing by
// size-overlap, trimming surrounding whitespace and dropping windows of
// MinChunkChars or fewer characters.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) > MinChunkChars {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

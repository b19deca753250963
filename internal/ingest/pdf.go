package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultPageBatch is the number of pages concatenated before chunking.
const DefaultPageBatch = 20

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("no text extracted from document")

// PageBatch is the text of a run of consecutive pages. Pages are 1-based and
// inclusive.
type PageBatch struct {
	FirstPage int
	LastPage  int
	Text      string
}

// ReadPDF extracts plain text from the PDF at path, grouped into batches of
// batchSize pages. Each page's text is followed by a newline. Pages that fail
// to decode are skipped.
func ReadPDF(path string, batchSize int) ([]PageBatch, error) {
	if batchSize <= 0 {
		batchSize = DefaultPageBatch
	}

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := rdr.NumPage()
	var batches []PageBatch
	hasText := false

	for first := 1; first <= total; first += batchSize {
		last := min(first+batchSize-1, total)

		var sb strings.Builder
		for i := first; i <= last; i++ {
			page := rdr.Page(i)
			if page.V.IsNull() {
				continue
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				continue
			}
			if strings.TrimSpace(text) != "" {
				hasText = true
			}
			sb.WriteString(text)
			sb.WriteString("\n")
		}

		batches = append(batches, PageBatch{FirstPage: first, LastPage: last, Text: sb.String()})
	}

	if !hasText {
		return nil, fmt.Errorf("%w: %s", ErrNoText, path)
	}
	return batches, nil
}

package evidence

import (
	"encoding/json"

	"github.com/Yates-Labs/carebridge/internal/rag"
)

// CitationSnippetChars bounds reference snippets shown to the caller.
const CitationSnippetChars = 400

// Citation is the caller-facing record of one evidence item.
type Citation struct {
	// ChunkID is nil for web citations
	ChunkID *int
	Snippet string
	Score   float64

	// Web-only fields; empty means absent and is rendered as null
	Title string
	URL   string
	Web   bool
}

type referenceCitationJSON struct {
	ID      int     `json:"id"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type webCitationJSON struct {
	ID      *int    `json:"id"`
	Snippet string  `json:"snippet"`
	URL     *string `json:"url"`
	Title   *string `json:"title"`
	Source  string  `json:"source"`
}

// MarshalJSON renders a reference as {id, snippet, score} and a web item as
// {id: null, snippet, url, title, source: "web"}.
func (c Citation) MarshalJSON() ([]byte, error) {
	if c.Web {
		return json.Marshal(webCitationJSON{
			Snippet: c.Snippet,
			URL:     nullable(c.URL),
			Title:   nullable(c.Title),
			Source:  "web",
		})
	}
	id := 0
	if c.ChunkID != nil {
		id = *c.ChunkID
	}
	return json.Marshal(referenceCitationJSON{ID: id, Snippet: c.Snippet, Score: c.Score})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Citations lists references first (rank order) then web items (provider
// order). Reference snippets are cut to CitationSnippetChars.
func Citations(bundle Bundle) []Citation {
	out := make([]Citation, 0, bundle.Len())
	for _, item := range bundle.Items() {
		switch e := item.(type) {
		case Reference:
			id := e.ChunkID
			out = append(out, Citation{
				ChunkID: &id,
				Snippet: rag.Truncate(e.Snippet, CitationSnippetChars),
				Score:   e.Score,
			})
		case Web:
			out = append(out, Citation{
				Snippet: e.Snippet,
				Title:   e.Title,
				URL:     e.URL,
				Web:     true,
			})
		}
	}
	return out
}

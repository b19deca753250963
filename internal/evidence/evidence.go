// Package evidence turns retrieval hits and web results into the material the
// answer stage consumes: an ordered bundle, the model prompt and the
// caller-facing citations.
package evidence

import (
	"github.com/Yates-Labs/carebridge/internal/rag"
	"github.com/Yates-Labs/carebridge/internal/websearch"
)

// Disclaimer is the fixed final line of every answer.
const Disclaimer = "Disclaimer: This is NOT medical advice. Consult a clinician."

// Evidence is either a Reference or a Web item.
type Evidence interface {
	isEvidence()
}

// Reference is a retrieved corpus chunk.
type Reference struct {
	ChunkID int
	Snippet string
	Score   float64
}

// Web is a web search result. Empty Title or URL mean absent.
type Web struct {
	Title   string
	Snippet string
	URL     string
}

func (Reference) isEvidence() {}
func (Web) isEvidence()       {}

// Bundle is the evidence for one question: references in rank order followed
// by web results in provider order.
type Bundle struct {
	refs []Reference
	web  []Web
}

// NewBundle copies results and web into a bundle.
func NewBundle(results []rag.Result, web []websearch.Result) Bundle {
	b := Bundle{
		refs: make([]Reference, 0, len(results)),
		web:  make([]Web, 0, len(web)),
	}
	for _, r := range results {
		b.refs = append(b.refs, Reference{ChunkID: r.ChunkID, Snippet: r.Snippet, Score: r.Score})
	}
	for _, w := range web {
		b.web = append(b.web, Web{Title: w.Title, Snippet: w.Snippet, URL: w.URL})
	}
	return b
}

// References returns the reference items in rank order.
func (b Bundle) References() []Reference { return b.refs }

// Web returns the web items in provider order.
func (b Bundle) Web() []Web { return b.web }

// Len is the total number of items.
func (b Bundle) Len() int { return len(b.refs) + len(b.web) }

// Empty reports whether the bundle holds no evidence at all.
func (b Bundle) Empty() bool { return b.Len() == 0 }

// Items returns every item, references first.
func (b Bundle) Items() []Evidence {
	items := make([]Evidence, 0, b.Len())
	for _, r := range b.refs {
		items = append(items, r)
	}
	for _, w := range b.web {
		items = append(items, w)
	}
	return items
}

// Heading renders the "title - url" line used for web items, leaving out
// whichever part is absent.
func (w Web) Heading() string {
	switch {
	case w.Title != "" && w.URL != "":
		return w.Title + " - " + w.URL
	case w.Title != "":
		return w.Title
	default:
		return w.URL
	}
}

package evidence

import (
	"fmt"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/rag"
)

// ComposePrompt builds the generative-model prompt for question. It is pure:
// the same inputs always produce the same prompt.
func ComposePrompt(patientSummary, question string, bundle Bundle) string {
	var b strings.Builder

	b.WriteString("You are a clinical assistant. Answer the question using ONLY the provided reference contexts.\n")
	b.WriteString("If the answer is not in the references, use the web search results (clearly tag them as [Web N])\n")
	b.WriteString("and indicate that they are web sources. Always include citations.\n\n")

	b.WriteString("Patient summary:\n")
	b.WriteString(patientSummary + "\n\n")

	b.WriteString("Question:\n")
	b.WriteString(question + "\n\n")

	b.WriteString("Reference Contexts:\n")
	for i, r := range bundle.References() {
		b.WriteString(fmt.Sprintf("[Source %d | chunk:%d | score:%.4f]\n", i+1, r.ChunkID, r.Score))
		b.WriteString(rag.Truncate(r.Snippet, rag.MaxSnippetChars) + "\n\n")
	}
	b.WriteString("\n")

	b.WriteString("Web Search Results:\n")
	for i, w := range bundle.Web() {
		b.WriteString(FormatWeb(i+1, w))
	}
	b.WriteString("\n")

	b.WriteString("Answer concisely and include citations.\n")
	b.WriteString(fmt.Sprintf("End with: %q\n", Disclaimer))

	return b.String()
}

// FormatWeb renders one web item as "[Web n] title - url" followed by its
// snippet and a blank line.
func FormatWeb(n int, w Web) string {
	heading := fmt.Sprintf("[Web %d]", n)
	if h := w.Heading(); h != "" {
		heading += " " + h
	}
	return heading + "\n" + w.Snippet + "\n\n"
}

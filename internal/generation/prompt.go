package generation

import (
	"fmt"
	"strings"

	"newsrag/internal/domain"
)

// BuildPrompt assembles the grounding prompt: the accepted chunks as a
// numbered context block followed by the answering instructions.
func BuildPrompt(query string, accepted []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Context from news articles:\n\n")
	for i, r := range accepted {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, r.Payload.Text)
	}
	b.WriteString("Instructions:\n")
	b.WriteString("- Answer the question using only the context above.\n")
	b.WriteString("- Keep an objective, factual tone.\n")
	b.WriteString("- If the context does not contain enough information to answer, say so instead of inventing facts.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}

// Package gate decides whether retrieved chunks are relevant enough to
// ground an answer, and picks a refusal wording for out-of-domain queries.
package gate

import (
	"strings"

	"newsrag/internal/domain"
)

// DefaultThreshold is the similarity score a result must strictly exceed to
// be accepted. Heuristic, empirically tuned; kept literal on purpose.
const DefaultThreshold = 0.3

// Intent classifies an out-of-domain query's surface form. It only selects
// the refusal wording and never influences retrieval.
type Intent int

const (
	// IntentNone marks an in-domain query; no refusal applies.
	IntentNone Intent = iota
	IntentGreeting
	IntentPersonal
	IntentGeneric
)

// Decision is the gate's verdict for one query.
type Decision struct {
	Accepted []domain.RetrievalResult
	InDomain bool
	Intent   Intent
}

// Gate applies a relevance threshold to retrieval results.
type Gate struct {
	threshold float32
}

// New builds a gate. A non-positive threshold falls back to the default.
func New(threshold float32) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{threshold: threshold}
}

// Check keeps results whose score strictly exceeds the threshold. The query
// is in-domain iff at least one result survives; otherwise the query text is
// classified to choose a refusal template.
func (g *Gate) Check(query string, results []domain.RetrievalResult) Decision {
	var accepted []domain.RetrievalResult
	for _, r := range results {
		if r.Score > g.threshold {
			accepted = append(accepted, r)
		}
	}
	if len(accepted) > 0 {
		return Decision{Accepted: accepted, InDomain: true, Intent: IntentNone}
	}
	return Decision{InDomain: false, Intent: classify(query)}
}

var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"how are you", "what's up", "whats up",
}

var personalPhrases = []string{
	"who are you", "your name", "what are you", "who made you",
	"what can you do", "are you a bot", "are you human",
}

func classify(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range personalPhrases {
		if strings.Contains(q, p) {
			return IntentPersonal
		}
	}
	for _, p := range greetingPhrases {
		if strings.Contains(q, p) {
			return IntentGreeting
		}
	}
	return IntentGeneric
}

// Refusal returns the canned out-of-domain response for an intent.
func Refusal(intent Intent) string {
	switch intent {
	case IntentGreeting:
		return "Hello! I'm a news assistant. Ask me about recent news topics and I'll answer from the articles I have indexed."
	case IntentPersonal:
		return "I'm an automated news assistant. I can only answer questions about the news articles in my index."
	default:
		return "I couldn't find anything relevant to that in the indexed news articles. Try asking about a recent news topic."
	}
}

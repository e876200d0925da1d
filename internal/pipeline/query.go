package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"newsrag/internal/domain"
	"newsrag/internal/gate"
)

const (
	// DefaultTopK is the number of neighbors retrieved per query.
	DefaultTopK = 5

	// snippetLength bounds the source excerpt attached to each citation.
	snippetLength = 200

	// degradedAnswer is the generic apology used when anything in the
	// query path fails unexpectedly. The pipeline never surfaces a raw
	// error to the end user.
	degradedAnswer = "Sorry, something went wrong while answering that. Please try again."
)

// Querier answers a single user question read-only against the index.
type Querier struct {
	embedder  domain.Embedder
	index     domain.VectorIndex
	gate      *gate.Gate
	generator domain.Generator
	logger    *zap.Logger
}

// NewQuerier wires a query pipeline. logger may be nil.
func NewQuerier(embedder domain.Embedder, index domain.VectorIndex, g *gate.Gate, generator domain.Generator, logger *zap.Logger) *Querier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Querier{
		embedder:  embedder,
		index:     index,
		gate:      g,
		generator: generator,
		logger:    logger,
	}
}

// Query embeds the question, retrieves topK neighbors, gates them, and
// either refuses with a template or composes a grounded answer. Every
// failure in this path, panics included, is converted into a degraded but
// well-formed outcome.
func (q *Querier) Query(ctx context.Context, userQuery string, topK int) (outcome *domain.QueryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("query pipeline panic", zap.Any("panic", r))
			outcome = degradedOutcome()
		}
	}()
	if topK <= 0 {
		topK = DefaultTopK
	}

	out, err := q.run(ctx, userQuery, topK)
	if err != nil {
		q.logger.Error("query pipeline failed", zap.String("query", userQuery), zap.Error(err))
		return degradedOutcome()
	}
	return out
}

func (q *Querier) run(ctx context.Context, userQuery string, topK int) (*domain.QueryOutcome, error) {
	batch, err := q.embedder.Embed(ctx, []string{userQuery})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(batch.Vectors) != 1 {
		return nil, fmt.Errorf("got %d vectors for one query", len(batch.Vectors))
	}

	results, err := q.index.Search(ctx, batch.Vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	decision := q.gate.Check(userQuery, results)
	if !decision.InDomain {
		q.logger.Debug("query gated as out-of-domain",
			zap.String("query", userQuery),
			zap.Int("retrieved", len(results)),
		)
		return &domain.QueryOutcome{
			AnswerText:     gate.Refusal(decision.Intent),
			Sources:        []domain.Source{},
			IsInDomain:     false,
			RetrievedCount: len(results),
		}, nil
	}

	answer, err := q.generator.Generate(ctx, userQuery, decision.Accepted)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	sources := make([]domain.Source, 0, len(decision.Accepted))
	for _, r := range decision.Accepted {
		sources = append(sources, domain.Source{
			Title:       r.Payload.DocumentTitle,
			URL:         r.Payload.DocumentURL,
			Snippet:     snippet(r.Payload.Text),
			Score:       r.Score,
			PublishedAt: r.Payload.PublishedAt,
		})
	}
	return &domain.QueryOutcome{
		AnswerText:     answer,
		Sources:        sources,
		IsInDomain:     true,
		RetrievedCount: len(results),
	}, nil
}

func degradedOutcome() *domain.QueryOutcome {
	return &domain.QueryOutcome{
		AnswerText: degradedAnswer,
		Sources:    []domain.Source{},
		IsInDomain: false,
	}
}

func snippet(text string) string {
	if len(text) <= snippetLength {
		return text
	}
	cut := snippetLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

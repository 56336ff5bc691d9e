package ports

import (
	"context"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

// ChunkStore reads policy chunks. Search is lexical, Nearest is semantic;
// both accept the same Filters and an adapter must apply them identically so
// the two modes see the same slice of the corpus. Returned candidates carry
// higher-is-better scores and no provenance.
type ChunkStore interface {
	Search(ctx context.Context, query string, f domain.Filters, k int) ([]domain.Candidate, error)
	Nearest(ctx context.Context, vector []float32, f domain.Filters, k int) ([]domain.Candidate, error)
	Ping(ctx context.Context) error
}

// Embedder builds the query vector for semantic search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RerankScorer scores documents against a query with a cross-encoder. The
// result is index-aligned with documents.
type RerankScorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// AnswerGenerator completes a fully built grounded prompt.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

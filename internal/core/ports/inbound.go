package ports

import (
	"context"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

// PolicySearcher is the inbound contract for retrieval without generation.
type PolicySearcher interface {
	Search(ctx context.Context, q domain.PolicyQuery) (*domain.SearchResponse, error)
}

// PolicyAnswerer is the inbound contract for the full question pipeline:
// route, retrieve, rerank, synthesize.
type PolicyAnswerer interface {
	Answer(ctx context.Context, q domain.PolicyQuery) (*domain.AnswerResult, error)
}

package usecase

import (
	"context"
	"strings"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

// SearchService is the retrieval-only surface: hybrid retrieval plus
// reranking with the caller's explicit filters, no routing and no
// generation. The evaluation harness runs on top of it.
type SearchService struct {
	retriever  *Retriever
	reranker   *RerankStage
	candidateK int
	finalK     int
}

func NewSearchService(retriever *Retriever, reranker *RerankStage, candidateK, finalK int) *SearchService {
	if candidateK <= 0 {
		candidateK = defaultCandidateK
	}
	if finalK <= 0 {
		finalK = defaultFinalK
	}
	return &SearchService{
		retriever:  retriever,
		reranker:   reranker,
		candidateK: candidateK,
		finalK:     finalK,
	}
}

func (s *SearchService) Search(ctx context.Context, q domain.PolicyQuery) (*domain.SearchResponse, error) {
	query := strings.TrimSpace(q.Query)
	if err := validateQuery(query, q.PolicyType); err != nil {
		return nil, err
	}

	filters := q.ExplicitFilters()
	candidateK := resolveK(q.CandidateK, s.candidateK, maxCandidateK)
	finalK := resolveK(q.FinalK, s.finalK, maxFinalK)

	candidates, debug, err := s.retriever.Retrieve(ctx, query, filters, candidateK)
	if err != nil {
		return nil, err
	}

	ranked, usedFallback := s.reranker.Rerank(ctx, query, candidates, finalK)

	resp := &domain.SearchResponse{
		Query:   query,
		Filters: filters,
		Results: toSources(ranked),
	}
	if len(ranked) == 0 {
		resp.Warning = noResultsWarning
	}
	if usedFallback {
		resp.Warning = joinWarnings(resp.Warning, RerankFallbackWarning)
	}
	if q.Debug {
		d := debug
		resp.Debug = &d
	}
	return resp, nil
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
)

// Cross-encoder input cap recommended for bge-reranker-v2-m3.
const rerankTextLimit = 1024

// RerankFallbackWarning is attached to results whenever scoring fell back to
// retrieval order. The HTTP adapter matches on it to count fallbacks.
const RerankFallbackWarning = "Reranker unavailable; results are ordered by retrieval score."

// RerankStage reorders a candidate pool with a cross-encoder. A scorer
// failure falls back to retrieval-score ordering, so a broken reranker
// degrades ranking quality, never availability.
type RerankStage struct {
	scorer  ports.RerankScorer
	timeout time.Duration
}

func NewRerankStage(scorer ports.RerankScorer, timeout time.Duration) *RerankStage {
	return &RerankStage{scorer: scorer, timeout: timeout}
}

// Rerank returns the top finalK candidates. The boolean reports whether the
// fallback ordering was used. Candidates with equal scores keep their
// incoming relative order.
func (s *RerankStage) Rerank(ctx context.Context, query string, candidates []domain.Candidate, finalK int) ([]domain.Candidate, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	if finalK <= 0 {
		finalK = defaultFinalK
	}

	scores, err := s.score(ctx, query, candidates)
	if err != nil {
		slog.Warn("rerank failed; keeping retrieval-score order", "error", err)
		return trimCandidates(sortedByScore(candidates), finalK), true
	}

	rescored := make([]domain.Candidate, len(candidates))
	copy(rescored, candidates)
	for i := range rescored {
		rescored[i].Score = scores[i]
	}
	return trimCandidates(sortedByScore(rescored), finalK), false
}

func (s *RerankStage) score(ctx context.Context, query string, candidates []domain.Candidate) ([]float64, error) {
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = capRunes(c.Content, rerankTextLimit)
	}

	scoreCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	scores, err := s.scorer.Score(scoreCtx, query, docs)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	if len(scores) != len(docs) {
		return nil, fmt.Errorf("score candidates: got %d scores for %d documents", len(scores), len(docs))
	}
	return scores, nil
}

func sortedByScore(candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func capRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

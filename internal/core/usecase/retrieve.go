package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
)

const (
	defaultCandidateK = 30
	defaultFinalK     = 5
	maxCandidateK     = 100
	maxFinalK         = 20
)

// resolveK picks the effective K for a request: caller value when given,
// service default otherwise, capped either way.
func resolveK(requested, fallback, limit int) int {
	k := requested
	if k <= 0 {
		k = fallback
	}
	if k > limit {
		k = limit
	}
	return k
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Retriever runs keyword and vector search concurrently against the same
// filtered slice of the corpus and merges both result sets into one
// candidate pool.
type Retriever struct {
	store         ports.ChunkStore
	embedder      ports.Embedder
	searchTimeout time.Duration
	embedTimeout  time.Duration
}

func NewRetriever(
	store ports.ChunkStore,
	embedder ports.Embedder,
	searchTimeout time.Duration,
	embedTimeout time.Duration,
) *Retriever {
	return &Retriever{
		store:         store,
		embedder:      embedder,
		searchTimeout: searchTimeout,
		embedTimeout:  embedTimeout,
	}
}

// Retrieve returns the merged candidate pool for one query. A single failed
// mode degrades to the surviving mode's results; both modes failing is an
// error of kind ErrRetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, f domain.Filters, candidateK int) ([]domain.Candidate, domain.RetrievalDebug, error) {
	if candidateK <= 0 {
		candidateK = defaultCandidateK
	}

	var (
		wg         sync.WaitGroup
		keyword    []domain.Candidate
		vector     []domain.Candidate
		keywordErr error
		vectorErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		keyword, keywordErr = r.keywordSearch(ctx, query, f, candidateK)
	}()
	go func() {
		defer wg.Done()
		vector, vectorErr = r.vectorSearch(ctx, query, f, candidateK)
	}()
	wg.Wait()

	debug := domain.RetrievalDebug{
		KeywordCount:  len(keyword),
		VectorCount:   len(vector),
		KeywordFailed: keywordErr != nil,
		VectorFailed:  vectorErr != nil,
	}

	if keywordErr != nil && vectorErr != nil {
		return nil, debug, domain.WrapError(
			domain.ErrRetrievalUnavailable,
			"hybrid retrieval",
			errors.Join(keywordErr, vectorErr),
		)
	}
	if keywordErr != nil {
		slog.Warn("keyword search failed; serving vector results only", "error", keywordErr)
	}
	if vectorErr != nil {
		slog.Warn("vector search failed; serving keyword results only", "error", vectorErr)
	}

	merged := mergeCandidates(keyword, vector)
	debug.MergedCount = len(merged)
	return merged, debug, nil
}

func (r *Retriever) keywordSearch(ctx context.Context, query string, f domain.Filters, k int) ([]domain.Candidate, error) {
	searchCtx, cancel := withTimeout(ctx, r.searchTimeout)
	defer cancel()

	out, err := r.store.Search(searchCtx, query, f, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	for i := range out {
		out[i].Provenance = domain.ProvenanceKeyword
	}
	return out, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, f domain.Filters, k int) ([]domain.Candidate, error) {
	embedCtx, cancelEmbed := withTimeout(ctx, r.embedTimeout)
	defer cancelEmbed()

	vec, err := r.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchCtx, cancelSearch := withTimeout(ctx, r.searchTimeout)
	defer cancelSearch()

	out, err := r.store.Nearest(searchCtx, vec, f, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	for i := range out {
		out[i].Provenance = domain.ProvenanceVector
	}
	return out, nil
}

// mergeCandidates unions the two modes keyed by (doc_name, chunk_index). A
// chunk found by both keeps its higher score and provenance "both". The pool
// is ordered by score descending with a stable chunk-key tie-break so equal
// inputs always produce equal output.
func mergeCandidates(keyword, vector []domain.Candidate) []domain.Candidate {
	acc := make(map[string]domain.Candidate, len(keyword)+len(vector))
	order := make([]string, 0, len(keyword)+len(vector))

	add := func(list []domain.Candidate) {
		for _, c := range list {
			key := c.Key()
			existing, ok := acc[key]
			if !ok {
				acc[key] = c
				order = append(order, key)
				continue
			}
			if c.Score > existing.Score {
				existing.Score = c.Score
			}
			existing.Provenance = domain.ProvenanceBoth
			acc[key] = existing
		}
	}
	add(keyword)
	add(vector)

	out := make([]domain.Candidate, 0, len(acc))
	for _, key := range order {
		out = append(out, acc[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocName != out[j].DocName {
			return out[i].DocName < out[j].DocName
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out
}

func trimCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

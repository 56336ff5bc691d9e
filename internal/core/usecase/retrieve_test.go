package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

type retrieveStoreFake struct {
	keyword        []domain.Candidate
	vector         []domain.Candidate
	keywordErr     error
	vectorErr      error
	searchFn       func(filters domain.Filters, k int) ([]domain.Candidate, error)
	keywordFilters domain.Filters
	vectorFilters  domain.Filters
	keywordK       int
	vectorK        int
	searchCalls    int
	nearestCalls   int
	searchHistory  []domain.Filters
}

func (f *retrieveStoreFake) Search(_ context.Context, _ string, filters domain.Filters, k int) ([]domain.Candidate, error) {
	f.searchCalls++
	f.keywordFilters = filters
	f.keywordK = k
	f.searchHistory = append(f.searchHistory, filters)
	if f.searchFn != nil {
		return f.searchFn(filters, k)
	}
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.keyword, nil
}

func (f *retrieveStoreFake) Nearest(_ context.Context, _ []float32, filters domain.Filters, k int) ([]domain.Candidate, error) {
	f.nearestCalls++
	f.vectorFilters = filters
	f.vectorK = k
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vector, nil
}

func (f *retrieveStoreFake) Ping(context.Context) error { return nil }

type retrieveEmbedderFake struct {
	err error
}

func (f *retrieveEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func chunkCandidate(doc string, index int, score float64) domain.Candidate {
	return domain.Candidate{
		Chunk: domain.Chunk{DocName: doc, ChunkIndex: index, Content: "content", Org: "ASU", Page: 1},
		Score: score,
	}
}

func TestRetrieveMergesBothModes(t *testing.T) {
	store := &retrieveStoreFake{
		keyword: []domain.Candidate{chunkCandidate("a.pdf", 0, 0.9), chunkCandidate("b.pdf", 1, 0.5)},
		vector:  []domain.Candidate{chunkCandidate("a.pdf", 0, 0.7), chunkCandidate("c.pdf", 2, 0.6)},
	}
	r := NewRetriever(store, &retrieveEmbedderFake{}, 0, 0)

	merged, debug, err := r.Retrieve(context.Background(), "per diem", domain.Filters{}, 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged candidates, got %d", len(merged))
	}
	if debug.KeywordCount != 2 || debug.VectorCount != 2 || debug.MergedCount != 3 {
		t.Fatalf("unexpected debug counts: %+v", debug)
	}

	var overlap *domain.Candidate
	for i := range merged {
		if merged[i].DocName == "a.pdf" && merged[i].ChunkIndex == 0 {
			overlap = &merged[i]
		}
	}
	if overlap == nil {
		t.Fatalf("overlapping chunk missing from merge")
	}
	if overlap.Provenance != domain.ProvenanceBoth {
		t.Fatalf("expected provenance both, got %s", overlap.Provenance)
	}
	if overlap.Score != 0.9 {
		t.Fatalf("expected max score kept, got %f", overlap.Score)
	}
}

func TestRetrieveSingleModeProvenance(t *testing.T) {
	store := &retrieveStoreFake{
		keyword: []domain.Candidate{chunkCandidate("a.pdf", 0, 0.9)},
		vector:  []domain.Candidate{chunkCandidate("b.pdf", 1, 0.6)},
	}
	r := NewRetriever(store, &retrieveEmbedderFake{}, 0, 0)

	merged, _, err := r.Retrieve(context.Background(), "q", domain.Filters{}, 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, c := range merged {
		switch c.DocName {
		case "a.pdf":
			if c.Provenance != domain.ProvenanceKeyword {
				t.Fatalf("expected keyword provenance for a.pdf, got %s", c.Provenance)
			}
		case "b.pdf":
			if c.Provenance != domain.ProvenanceVector {
				t.Fatalf("expected vector provenance for b.pdf, got %s", c.Provenance)
			}
		}
	}
}

func TestRetrieveAppliesSameFiltersToBothModes(t *testing.T) {
	store := &retrieveStoreFake{}
	r := NewRetriever(store, &retrieveEmbedderFake{}, 0, 0)
	filters := domain.Filters{Org: "Yale", PolicyType: domain.PolicyTravel, DocName: "travel.pdf"}

	if _, _, err := r.Retrieve(context.Background(), "q", filters, 7); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if store.keywordFilters != filters || store.vectorFilters != filters {
		t.Fatalf("filters differ across modes: keyword=%+v vector=%+v", store.keywordFilters, store.vectorFilters)
	}
	if store.keywordK != 7 || store.vectorK != 7 {
		t.Fatalf("expected k=7 for both modes, got %d and %d", store.keywordK, store.vectorK)
	}
}

func TestRetrieveDegradesWhenKeywordFails(t *testing.T) {
	store := &retrieveStoreFake{
		keywordErr: errors.New("tsquery exploded"),
		vector:     []domain.Candidate{chunkCandidate("b.pdf", 1, 0.6)},
	}
	r := NewRetriever(store, &retrieveEmbedderFake{}, 0, 0)

	merged, debug, err := r.Retrieve(context.Background(), "q", domain.Filters{}, 5)
	if err != nil {
		t.Fatalf("expected degradation, got error %v", err)
	}
	if !debug.KeywordFailed || debug.VectorFailed {
		t.Fatalf("unexpected failure flags: %+v", debug)
	}
	if len(merged) != 1 || merged[0].Provenance != domain.ProvenanceVector {
		t.Fatalf("expected surviving vector results, got %+v", merged)
	}
}

func TestRetrieveDegradesWhenEmbedFails(t *testing.T) {
	store := &retrieveStoreFake{
		keyword: []domain.Candidate{chunkCandidate("a.pdf", 0, 0.9)},
	}
	r := NewRetriever(store, &retrieveEmbedderFake{err: errors.New("embedder down")}, 0, 0)

	merged, debug, err := r.Retrieve(context.Background(), "q", domain.Filters{}, 5)
	if err != nil {
		t.Fatalf("expected degradation, got error %v", err)
	}
	if !debug.VectorFailed || debug.KeywordFailed {
		t.Fatalf("unexpected failure flags: %+v", debug)
	}
	if store.nearestCalls != 0 {
		t.Fatalf("vector search should not run when embedding fails")
	}
	if len(merged) != 1 || merged[0].Provenance != domain.ProvenanceKeyword {
		t.Fatalf("expected surviving keyword results, got %+v", merged)
	}
}

func TestRetrieveFailsWhenBothModesFail(t *testing.T) {
	store := &retrieveStoreFake{
		keywordErr: errors.New("db down"),
		vectorErr:  errors.New("db down"),
	}
	r := NewRetriever(store, &retrieveEmbedderFake{}, 0, 0)

	_, _, err := r.Retrieve(context.Background(), "q", domain.Filters{}, 5)
	if err == nil {
		t.Fatalf("expected error when both modes fail")
	}
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestMergeCandidatesDeterministicOrder(t *testing.T) {
	keyword := []domain.Candidate{chunkCandidate("a.pdf", 0, 0.5), chunkCandidate("b.pdf", 0, 0.5)}
	vector := []domain.Candidate{chunkCandidate("c.pdf", 0, 0.5)}

	first := mergeCandidates(keyword, vector)
	for i := 0; i < 5; i++ {
		again := mergeCandidates(keyword, vector)
		if len(again) != len(first) {
			t.Fatalf("merge size changed between runs")
		}
		for j := range again {
			if again[j].Key() != first[j].Key() {
				t.Fatalf("merge order changed between runs: %v vs %v", again[j].Key(), first[j].Key())
			}
		}
	}
	if first[0].DocName != "a.pdf" || first[1].DocName != "b.pdf" || first[2].DocName != "c.pdf" {
		t.Fatalf("expected doc-name tie-break ordering, got %v %v %v", first[0].DocName, first[1].DocName, first[2].DocName)
	}
}

func TestMergeCandidatesSortsByScore(t *testing.T) {
	keyword := []domain.Candidate{chunkCandidate("low.pdf", 0, 0.1)}
	vector := []domain.Candidate{chunkCandidate("high.pdf", 0, 0.8)}

	merged := mergeCandidates(keyword, vector)
	if merged[0].DocName != "high.pdf" {
		t.Fatalf("expected highest score first, got %s", merged[0].DocName)
	}
}

package usecase

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
)

// GoldExample is one labeled evaluation query. RelevantDocs entries use the
// "<doc_name>_<chunk_index>" id form, e.g. "ASU.pdf_0".
type GoldExample struct {
	Query        string   `json:"query"`
	RelevantDocs []string `json:"relevant_docs"`
}

// QueryMetrics holds the per-query retrieval quality numbers.
type QueryMetrics struct {
	Query          string  `json:"query"`
	Expected       int     `json:"expected"`
	Hits           int     `json:"hits"`
	Recall         float64 `json:"recall"`
	ReciprocalRank float64 `json:"reciprocal_rank"`
}

// EvalReport aggregates retrieval quality across a gold set.
type EvalReport struct {
	K          int            `json:"k"`
	PerQuery   []QueryMetrics `json:"per_query"`
	MeanRecall float64        `json:"mean_recall"`
	MeanMRR    float64        `json:"mean_mrr"`
}

// Evaluator measures retrieval quality (Recall@K and MRR) over a gold set.
// It exercises retrieval and reranking only; generation never runs.
type Evaluator struct {
	searcher ports.PolicySearcher
}

func NewEvaluator(searcher ports.PolicySearcher) *Evaluator {
	return &Evaluator{searcher: searcher}
}

// Run evaluates every gold example at cutoff k. Recall@K is the fraction of
// a query's expected chunks found in the top k; the reciprocal rank is 1/rank
// of the first relevant result, zero when none appears.
func (e *Evaluator) Run(ctx context.Context, examples []GoldExample, k, candidateK int) (*EvalReport, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("gold set is empty")
	}
	if k <= 0 {
		k = defaultFinalK
	}

	report := &EvalReport{K: k, PerQuery: make([]QueryMetrics, 0, len(examples))}
	var sumRecall, sumRR float64

	for _, ex := range examples {
		resp, err := e.searcher.Search(ctx, domain.PolicyQuery{
			Query:      ex.Query,
			FinalK:     k,
			CandidateK: candidateK,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", ex.Query, err)
		}

		m := scoreQuery(ex, resp.Results)
		report.PerQuery = append(report.PerQuery, m)
		sumRecall += m.Recall
		sumRR += m.ReciprocalRank
	}

	n := float64(len(report.PerQuery))
	report.MeanRecall = sumRecall / n
	report.MeanMRR = sumRR / n
	return report, nil
}

func scoreQuery(ex GoldExample, results []domain.Source) QueryMetrics {
	expected := make(map[string]struct{}, len(ex.RelevantDocs))
	for _, id := range ex.RelevantDocs {
		expected[id] = struct{}{}
	}

	m := QueryMetrics{Query: ex.Query, Expected: len(expected)}
	for rank, src := range results {
		id := fmt.Sprintf("%s_%d", src.DocName, src.ChunkIndex)
		if _, ok := expected[id]; !ok {
			continue
		}
		m.Hits++
		if m.ReciprocalRank == 0 {
			m.ReciprocalRank = 1.0 / float64(rank+1)
		}
		delete(expected, id)
	}
	if m.Expected > 0 {
		m.Recall = float64(m.Hits) / float64(m.Expected)
	}
	return m
}

// ParseGold reads a JSONL gold set: one JSON object per line, blank lines
// ignored.
func ParseGold(r io.Reader) ([]GoldExample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var examples []GoldExample
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ex GoldExample
		if err := json.Unmarshal([]byte(text), &ex); err != nil {
			return nil, fmt.Errorf("gold line %d: %w", line, err)
		}
		if ex.Query == "" {
			return nil, fmt.Errorf("gold line %d: query is required", line)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gold set: %w", err)
	}
	return examples, nil
}

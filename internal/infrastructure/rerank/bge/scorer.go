package bge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Yashshah0502/Expense-AI/internal/infrastructure/resilience"
)

// Scorer calls a text-embeddings-inference style /rerank endpoint serving a
// bge cross-encoder. The server returns entries sorted by score; Score
// restores input order so results stay index-aligned with documents.
type Scorer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewScorer(baseURL, model string, executor *resilience.Executor) *Scorer {
	return &Scorer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type rankedText struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (s *Scorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model":    s.model,
		"query":    query,
		"texts":    documents,
		"truncate": true,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	ranked, err := resilience.Do(ctx, s.executor, "bge.rerank", func(ctx context.Context) ([]rankedText, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create rerank request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("bge rerank request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, resilience.NewHTTPStatusError("bge rerank", resp)
		}
		var out []rankedText
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode rerank response: %w", err)
		}
		return out, nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("bge rerank", err)
	}

	return alignScores(ranked, len(documents))
}

// alignScores maps score-sorted entries back onto input positions.
// Cross-encoder logits can be negative, so a missing entry cannot default to
// zero and is an error instead.
func alignScores(ranked []rankedText, n int) ([]float64, error) {
	if len(ranked) != n {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(ranked), n)
	}
	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= n || seen[r.Index] {
			return nil, fmt.Errorf("rerank returned unusable index %d", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.Score
	}
	return scores, nil
}

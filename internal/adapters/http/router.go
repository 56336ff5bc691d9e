package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Yashshah0502/Expense-AI/internal/config"
	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
	"github.com/Yashshah0502/Expense-AI/internal/core/usecase"
	"github.com/Yashshah0502/Expense-AI/internal/observability/metrics"
)

const serviceName = "api"

const dbPingTimeout = 5 * time.Second

// Pinger is the slice of the chunk store the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg      config.Config
	searcher ports.PolicySearcher
	answerer ports.PolicyAnswerer
	db       Pinger
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	searcher ports.PolicySearcher,
	answerer ports.PolicyAnswerer,
	db Pinger,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		searcher: searcher,
		answerer: answerer,
		db:       db,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/healthz/db", rt.healthzDB)
	mux.HandleFunc("/v1/policy/search", rt.searchPolicies)
	mux.HandleFunc("/v1/policy/answer", rt.answerQuestion)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueTimeoutSeconds)*time.Second)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) healthzDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
	defer cancel()

	if err := rt.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) searchPolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q, err := searchQueryFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// Always request retrieval counts so the mode-failure metrics see every
	// search, then strip them unless the caller asked.
	svcQuery := q
	svcQuery.Debug = true

	start := time.Now()
	resp, err := rt.searcher.Search(r.Context(), svcQuery)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordSearch(serviceName, len(resp.Results), time.Since(start))
	if resp.Debug != nil {
		rt.metrics.RecordRetrievalDebug(serviceName, resp.Debug.KeywordFailed, resp.Debug.VectorFailed, resp.Debug.MergedCount)
	}
	if strings.Contains(resp.Warning, usecase.RerankFallbackWarning) {
		rt.metrics.RecordRerankFallback(serviceName)
	}
	if !q.Debug {
		resp.Debug = nil
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var q domain.PolicyQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.answerer.Answer(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordRouteDecision(serviceName, string(result.Route))
	rt.metrics.RecordAnswer(serviceName, string(result.Status), len(result.Sources), time.Since(start))
	if strings.Contains(result.Warning, usecase.RerankFallbackWarning) {
		rt.metrics.RecordRerankFallback(serviceName)
	}
	if strings.Contains(result.Warning, usecase.GenerationFailedPrefix) {
		rt.metrics.RecordGenerationFailure(serviceName)
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

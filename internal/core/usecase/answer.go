package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/routing"
)

// Per-org retrieval widens the candidate pool so no compared university is
// starved out of the grounded context.
const (
	perOrgCandidateFloor = 25
	perOrgFinalFloor     = 3
)

const needsSQLWarning = "This looks like a question about personal expense records. The expense ledger is not connected yet; only policy documents can be searched."

// AnswerService runs the full pipeline for one question: route, retrieve,
// rerank, synthesize. Locally recovered failures surface as warnings on the
// result; only a total retrieval outage returns an error.
type AnswerService struct {
	router      *routing.Router
	retriever   *Retriever
	reranker    *RerankStage
	synthesizer *Synthesizer
	candidateK  int
	finalK      int
}

func NewAnswerService(
	router *routing.Router,
	retriever *Retriever,
	reranker *RerankStage,
	synthesizer *Synthesizer,
	candidateK int,
	finalK int,
) *AnswerService {
	if candidateK <= 0 {
		candidateK = defaultCandidateK
	}
	if finalK <= 0 {
		finalK = defaultFinalK
	}
	return &AnswerService{
		router:      router,
		retriever:   retriever,
		reranker:    reranker,
		synthesizer: synthesizer,
		candidateK:  candidateK,
		finalK:      finalK,
	}
}

func (s *AnswerService) Answer(ctx context.Context, q domain.PolicyQuery) (*domain.AnswerResult, error) {
	query := strings.TrimSpace(q.Query)
	if err := validateQuery(query, q.PolicyType); err != nil {
		return nil, err
	}

	decision := s.router.Route(query, q.ExplicitFilters())

	switch decision.Route {
	case domain.RouteSQLNotReady:
		return &domain.AnswerResult{
			Status:  domain.StatusNeedsSQL,
			Query:   query,
			Route:   decision.Route,
			Filters: decision.Filters,
			Warning: needsSQLWarning,
		}, nil
	case domain.RouteClarify:
		return &domain.AnswerResult{
			Status:          domain.StatusNeedsClarification,
			Query:           query,
			Route:           decision.Route,
			Filters:         decision.Filters,
			ClarifyQuestion: decision.ClarifyQuestion,
		}, nil
	}

	candidateK := resolveK(q.CandidateK, s.candidateK, maxCandidateK)
	finalK := resolveK(q.FinalK, s.finalK, maxFinalK)

	ranked, usedFallback, err := s.retrieveRanked(ctx, query, decision, candidateK, finalK)
	if err != nil {
		return nil, err
	}

	result := s.synthesizer.Synthesize(ctx, query, decision, ranked)
	if usedFallback {
		result.Warning = joinWarnings(result.Warning, RerankFallbackWarning)
	}
	return result, nil
}

func (s *AnswerService) retrieveRanked(ctx context.Context, query string, decision domain.RouterDecision, candidateK, finalK int) ([]domain.Candidate, bool, error) {
	if len(decision.MentionedOrgs) >= 2 {
		return s.retrievePerOrg(ctx, query, decision, candidateK, finalK)
	}

	candidates, _, err := s.retriever.Retrieve(ctx, query, decision.Filters, candidateK)
	if err != nil {
		return nil, false, err
	}
	ranked, usedFallback := s.reranker.Rerank(ctx, query, candidates, finalK)
	return ranked, usedFallback, nil
}

// retrievePerOrg runs a separate retrieval for every mentioned organization
// and concatenates the per-org rankings in mention order, so a comparison
// answer has material for each university even when one dominates the
// unfiltered ranking.
func (s *AnswerService) retrievePerOrg(ctx context.Context, query string, decision domain.RouterDecision, candidateK, finalK int) ([]domain.Candidate, bool, error) {
	orgCandidateK := candidateK
	if orgCandidateK <= 20 {
		orgCandidateK = perOrgCandidateFloor
	}
	orgFinalK := finalK / len(decision.MentionedOrgs)
	if orgFinalK < perOrgFinalFloor {
		orgFinalK = perOrgFinalFloor
	}

	var (
		all          []domain.Candidate
		usedFallback bool
		errs         []error
	)
	for _, org := range decision.MentionedOrgs {
		f := decision.Filters
		f.Org = org

		candidates, _, err := s.retriever.Retrieve(ctx, query, f, orgCandidateK)
		if err != nil {
			slog.Warn("per-org retrieval failed", "org", org, "error", err)
			errs = append(errs, err)
			continue
		}
		ranked, fb := s.reranker.Rerank(ctx, query, candidates, orgFinalK)
		usedFallback = usedFallback || fb
		all = append(all, ranked...)
	}

	if len(all) == 0 && len(errs) == len(decision.MentionedOrgs) && len(errs) > 0 {
		return nil, false, errs[0]
	}
	return all, usedFallback, nil
}

const minQueryLen = 2

func validateQuery(query, policyType string) error {
	if len([]rune(query)) < minQueryLen {
		return domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("query must be at least 2 characters"))
	}
	if policyType != "" && !domain.KnownPolicyType(policyType) {
		return domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("policy_type must be travel, procurement, or general"))
	}
	return nil
}

func joinWarnings(existing, extra string) string {
	switch {
	case existing == "":
		return extra
	case extra == "":
		return existing
	default:
		return existing + " " + extra
	}
}

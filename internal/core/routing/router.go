package routing

import (
	"fmt"
	"strings"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

// Router maps a question plus explicit filter parameters to a RouterDecision.
// It is pure: no I/O, no state beyond the compiled registry, and it returns a
// decision for any input including the empty string.
type Router struct {
	reg             *Registry
	orgs            []orgMatcher
	clarifyQuestion string
}

func NewRouter() *Router {
	reg := defaultRegistry
	canonicals := make([]string, 0, len(reg.Orgs))
	for _, org := range reg.Orgs {
		canonicals = append(canonicals, org.Canonical)
	}
	return &Router{
		reg:             reg,
		orgs:            compileOrgMatchers(reg),
		clarifyQuestion: fmt.Sprintf("Which university policy should I use? (%s)", strings.Join(canonicals, ", ")),
	}
}

// Route applies the rule chain in order; the first matching rule wins.
// Explicit filters always override inference: a provided org suppresses org
// extraction entirely and a provided policy type suppresses inference.
func (r *Router) Route(question string, explicit domain.Filters) domain.RouterDecision {
	q := strings.TrimSpace(question)

	if r.hasSQLIntent(q) {
		return domain.RouterDecision{
			Route:   domain.RouteSQLNotReady,
			Filters: explicit,
			Reason:  "user-specific expense intent detected; ledger queries are not integrated yet",
		}
	}

	var mentioned []string
	if explicit.Org == "" {
		mentioned = r.ExtractOrgs(q)
	}
	policyType := explicit.PolicyType
	if policyType == "" {
		policyType = r.InferPolicyType(q)
	}

	if len(mentioned) >= 2 {
		return domain.RouterDecision{
			Route:         domain.RouteRAGAll,
			Filters:       domain.Filters{PolicyType: policyType, DocName: explicit.DocName},
			Reason:        fmt.Sprintf("multiple organizations mentioned (%s); answering across organizations", strings.Join(mentioned, ", ")),
			MentionedOrgs: mentioned,
		}
	}

	filters := domain.Filters{Org: explicit.Org, PolicyType: policyType, DocName: explicit.DocName}
	if filters.Org == "" && len(mentioned) == 1 {
		filters.Org = mentioned[0]
	}

	if filters.Org != "" {
		return domain.RouterDecision{
			Route:         domain.RouteRAGFiltered,
			Filters:       filters,
			Reason:        "organization known; retrieving with filters",
			MentionedOrgs: mentioned,
		}
	}

	if r.expectsSingleAnswer(q) {
		return domain.RouterDecision{
			Route:           domain.RouteClarify,
			Filters:         filters,
			ClarifyQuestion: r.clarifyQuestion,
			Reason:          "question expects one definitive policy but no organization was given",
		}
	}

	return domain.RouterDecision{
		Route:   domain.RouteRAGAll,
		Filters: filters,
		Reason:  "no organization constraint; answering across all universities",
	}
}

package httpadapter

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

func searchQueryFromRequest(r *http.Request) (domain.PolicyQuery, error) {
	params := r.URL.Query()
	q := domain.PolicyQuery{
		Query:      strings.TrimSpace(params.Get("q")),
		Org:        strings.TrimSpace(params.Get("org")),
		PolicyType: strings.TrimSpace(params.Get("policy_type")),
		DocName:    strings.TrimSpace(params.Get("doc_name")),
		Debug:      boolParam(params, "debug"),
	}

	var err error
	if q.CandidateK, err = intParam(params, "candidate_k"); err != nil {
		return domain.PolicyQuery{}, err
	}
	if q.FinalK, err = intParam(params, "final_k"); err != nil {
		return domain.PolicyQuery{}, err
	}
	return q, nil
}

func intParam(params url.Values, name string) (int, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func boolParam(params url.Values, name string) bool {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

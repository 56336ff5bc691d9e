package domain

// PolicyQuery carries one question plus the caller's explicit constraints and
// tuning knobs. Explicit filter fields always win over inference downstream.
type PolicyQuery struct {
	Query      string `json:"q"`
	Org        string `json:"org,omitempty"`
	PolicyType string `json:"policy_type,omitempty"`
	DocName    string `json:"doc_name,omitempty"`
	CandidateK int    `json:"candidate_k,omitempty"`
	FinalK     int    `json:"final_k,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

func (q PolicyQuery) ExplicitFilters() Filters {
	return Filters{Org: q.Org, PolicyType: q.PolicyType, DocName: q.DocName}
}

// SearchResponse is the retrieval-only surface: ranked sources without a
// generated answer. Debug is populated only when the caller asked for it.
type SearchResponse struct {
	Query   string          `json:"query"`
	Filters Filters         `json:"filters"`
	Results []Source        `json:"results"`
	Warning string          `json:"warning,omitempty"`
	Debug   *RetrievalDebug `json:"debug,omitempty"`
}

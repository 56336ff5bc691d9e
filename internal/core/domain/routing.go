package domain

type Route string

const (
	RouteSQLNotReady Route = "SQL_NOT_READY"
	RouteClarify     Route = "CLARIFY"
	RouteRAGFiltered Route = "RAG_FILTERED"
	RouteRAGAll      Route = "RAG_ALL"
)

// RouterDecision is the routing verdict for one query. MentionedOrgs lists
// every organization detected in the query in first-mention order, even when
// the org filter itself stays empty (comparison questions).
type RouterDecision struct {
	Route           Route    `json:"route"`
	Filters         Filters  `json:"filters"`
	ClarifyQuestion string   `json:"clarify_question,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	MentionedOrgs   []string `json:"mentioned_orgs,omitempty"`
}

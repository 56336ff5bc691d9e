package domain

type AnswerStatus string

const (
	StatusOK                 AnswerStatus = "ok"
	StatusNeedsClarification AnswerStatus = "needs_clarification"
	StatusNeedsSQL           AnswerStatus = "needs_sql"
	StatusNoResults          AnswerStatus = "no_results"
)

// AnswerResult is the structured outcome of the answer pipeline. Filters
// reports the constraints that were actually applied, explicit parameters
// included. Sources stays empty whenever Status is not ok.
type AnswerResult struct {
	Status          AnswerStatus `json:"status"`
	Query           string       `json:"query"`
	Route           Route        `json:"route"`
	Filters         Filters      `json:"filters"`
	Answer          string       `json:"answer,omitempty"`
	Sources         []Source     `json:"sources,omitempty"`
	ClarifyQuestion string       `json:"clarify_question,omitempty"`
	Warning         string       `json:"warning,omitempty"`
}

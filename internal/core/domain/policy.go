package domain

import "fmt"

// PolicyType values accepted by filters and stored on chunks.
const (
	PolicyTravel      = "travel"
	PolicyProcurement = "procurement"
	PolicyGeneral     = "general"
)

func KnownPolicyType(v string) bool {
	switch v {
	case PolicyTravel, PolicyProcurement, PolicyGeneral:
		return true
	}
	return false
}

// Filters narrows retrieval to a subset of the corpus. Empty fields mean
// "no constraint". A Filters value is fixed for the lifetime of a request.
type Filters struct {
	Org        string `json:"org,omitempty"`
	PolicyType string `json:"policy_type,omitempty"`
	DocName    string `json:"doc_name,omitempty"`
}

func (f Filters) IsZero() bool {
	return f.Org == "" && f.PolicyType == "" && f.DocName == ""
}

// Chunk is one retrievable unit of a policy document. Rows are produced by
// the ingestion pipeline and are read-only here.
type Chunk struct {
	DocName    string `json:"doc_name"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Page       int    `json:"page"`
	Org        string `json:"org"`
	PolicyType string `json:"policy_type"`
	Section    string `json:"section,omitempty"`
}

// Key identifies a chunk across retrieval modes.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.DocName, c.ChunkIndex)
}

type Provenance string

const (
	ProvenanceKeyword Provenance = "keyword"
	ProvenanceVector  Provenance = "vector"
	ProvenanceBoth    Provenance = "both"
)

// Candidate is a chunk with its request-local relevance score. Scores are
// only comparable within a single request and a single pipeline stage.
type Candidate struct {
	Chunk
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
}

// Source is the citation form of a candidate surfaced to callers.
type Source struct {
	DocName     string  `json:"doc_name"`
	Org         string  `json:"org"`
	Page        int     `json:"page"`
	PolicyType  string  `json:"policy_type"`
	ChunkIndex  int     `json:"chunk_index"`
	TextSnippet string  `json:"text_snippet"`
	Score       float64 `json:"score"`
}

// RetrievalDebug reports per-mode result counts and failures for one
// retrieval pass.
type RetrievalDebug struct {
	KeywordCount  int  `json:"keyword_count"`
	VectorCount   int  `json:"vector_count"`
	MergedCount   int  `json:"merged_count"`
	KeywordFailed bool `json:"keyword_failed"`
	VectorFailed  bool `json:"vector_failed"`
}

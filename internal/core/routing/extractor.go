package routing

import (
	"regexp"
	"sort"
	"strings"
)

type orgMatcher struct {
	canonical string
	patterns  []*regexp.Regexp
}

func compileOrgMatchers(reg *Registry) []orgMatcher {
	matchers := make([]orgMatcher, 0, len(reg.Orgs))
	for _, org := range reg.Orgs {
		m := orgMatcher{canonical: org.Canonical}
		for _, alias := range org.Aliases {
			m.patterns = append(m.patterns, regexp.MustCompile(
				`(^|[^a-z0-9])`+regexp.QuoteMeta(strings.ToLower(alias))+`([^a-z0-9]|$)`))
		}
		matchers = append(matchers, m)
	}
	return matchers
}

// normalize lowercases and collapses runs of whitespace so multi-word
// phrases match regardless of the user's spacing.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsAny(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// ExtractOrgs returns the canonical ids of every organization the question
// mentions, each at most once, ordered by first mention.
func (r *Router) ExtractOrgs(question string) []string {
	q := normalize(question)
	type hit struct {
		canonical string
		pos       int
	}
	var hits []hit
	for _, m := range r.orgs {
		first := -1
		for _, p := range m.patterns {
			if loc := p.FindStringIndex(q); loc != nil && (first == -1 || loc[0] < first) {
				first = loc[0]
			}
		}
		if first >= 0 {
			hits = append(hits, hit{canonical: m.canonical, pos: first})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	orgs := make([]string, 0, len(hits))
	for _, h := range hits {
		orgs = append(orgs, h.canonical)
	}
	return orgs
}

// InferPolicyType guesses a policy type from keyword hits. Empty result
// means no signal; ties keep the registry's first entry, so travel wins
// over procurement for mixed questions.
func (r *Router) InferPolicyType(question string) string {
	q := normalize(question)
	bestName, bestScore := "", 0
	for _, pt := range r.reg.PolicyTypes {
		score := 0
		for _, kw := range pt.Keywords {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			bestName, bestScore = pt.Name, score
		}
	}
	return bestName
}

func (r *Router) hasSQLIntent(question string) bool {
	return containsAny(normalize(question), r.reg.SQLIntentPhrases)
}

// expectsSingleAnswer reports whether the question reads like it wants one
// definitive ruling. Comparison language suppresses it: "compare X vs Y"
// should fan out, not clarify.
func (r *Router) expectsSingleAnswer(question string) bool {
	q := normalize(question)
	if containsAny(q, r.reg.ComparisonMarkers) {
		return false
	}
	return containsAny(q, r.reg.SingleAnswerTriggers)
}

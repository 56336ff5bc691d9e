package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
	"github.com/Yashshah0502/Expense-AI/internal/core/ports"
)

const (
	snippetLimit       = 350
	minUsefulAnswerLen = 20
)

const (
	noResultsWarning     = "No relevant policy content found for those filters. Try broader filters."
	uselessAnswerWarning = "The model did not return a useful answer. Try adding broader filters or rephrasing."
)

// GenerationFailedPrefix starts the warning attached when the model call
// itself fails. The HTTP adapter matches on it to count failures.
const GenerationFailedPrefix = "LLM generation failed"

// genericAnswerMarkers flag generations that dodge the question instead of
// grounding in the citations.
var genericAnswerMarkers = []string{
	"i don't know",
	"i do not know",
	"i cannot answer",
	"i can't answer",
	"as an ai",
	"no information provided",
}

const singleOrgInstruction = `You are a policy assistant answering travel/procurement questions.

Use only the following policy citations to answer. If unsure, say so.`

const groupedInstruction = `You are a policy assistant answering travel/procurement questions across multiple universities.

IMPORTANT: If policies differ by university, organize your answer by university (org). Show each organization separately with its specific policy and citations.

If all universities have the same policy, you can provide a single unified answer with citations from all sources.

Use only the following policy citations to answer. If unsure, say so.`

const comparisonInstruction = `You are a policy assistant answering travel/procurement questions across multiple universities.

CRITICAL INSTRUCTIONS FOR MULTI-ORG COMPARISON:
1. Organize your answer BY UNIVERSITY (one section per org)
2. For EACH university, provide a clear summary:
   - **Allowed**: If the policy explicitly allows it
   - **Not Allowed**: If the policy explicitly prohibits it
   - **Conditional**: If it's allowed under certain conditions (state the conditions)
   - **Not Found**: If no relevant policy information was found for this university

3. Format like this:
   **[University Name]**: Status (citation)
   - Brief explanation with specific details

4. ALWAYS include ALL universities from the sources, even if policy wasn't found.
5. Cite sources using format: [Org] doc_name (page X)

Use only the following policy citations to answer.`

// Synthesizer turns a ranked candidate list into a grounded answer with
// citations. Generation failures degrade to a warning on the result; the
// sources from retrieval are kept either way.
type Synthesizer struct {
	generator ports.AnswerGenerator
	timeout   time.Duration
}

func NewSynthesizer(generator ports.AnswerGenerator, timeout time.Duration) *Synthesizer {
	return &Synthesizer{generator: generator, timeout: timeout}
}

func (s *Synthesizer) Synthesize(ctx context.Context, query string, decision domain.RouterDecision, ranked []domain.Candidate) *domain.AnswerResult {
	result := &domain.AnswerResult{
		Status:  domain.StatusOK,
		Query:   query,
		Route:   decision.Route,
		Filters: decision.Filters,
	}

	if len(ranked) == 0 {
		result.Status = domain.StatusNoResults
		result.Warning = noResultsWarning
		return result
	}

	generateCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.generator.Generate(generateCtx, buildPrompt(query, decision, ranked))
	answer = strings.TrimSpace(answer)
	switch {
	case err != nil:
		result.Warning = fmt.Sprintf("%s: %v", GenerationFailedPrefix, err)
	case isGenericAnswer(answer):
		result.Answer = answer
		result.Warning = uselessAnswerWarning
	default:
		result.Answer = answer
	}

	result.Sources = toSources(ranked)
	return result
}

// buildPrompt assembles the grounded prompt: an instruction picked for the
// question shape, one citation block per candidate, then the question. The
// comparison instruction is used when the router saw several organizations;
// the grouped one when an unfiltered search still spans several.
func buildPrompt(query string, decision domain.RouterDecision, ranked []domain.Candidate) string {
	instruction := singleOrgInstruction
	if decision.Filters.Org == "" {
		switch {
		case len(decision.MentionedOrgs) >= 2:
			instruction = comparisonInstruction
		case distinctOrgs(ranked) > 1:
			instruction = groupedInstruction
		}
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nSources:\n")
	b.WriteString(citationBlocks(ranked))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer (with citations where relevant):")
	return b.String()
}

func citationBlocks(ranked []domain.Candidate) string {
	blocks := make([]string, 0, len(ranked))
	for _, c := range ranked {
		blocks = append(blocks, fmt.Sprintf("[%s] %s Pg %d:\n%s", c.Org, c.DocName, c.Page, snippetText(c.Content)))
	}
	return strings.Join(blocks, "\n\n")
}

func distinctOrgs(ranked []domain.Candidate) int {
	seen := make(map[string]struct{}, len(ranked))
	for _, c := range ranked {
		seen[c.Org] = struct{}{}
	}
	return len(seen)
}

func toSources(ranked []domain.Candidate) []domain.Source {
	out := make([]domain.Source, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, domain.Source{
			DocName:     c.DocName,
			Org:         c.Org,
			Page:        c.Page,
			PolicyType:  c.PolicyType,
			ChunkIndex:  c.ChunkIndex,
			TextSnippet: snippetText(c.Content),
			Score:       c.Score,
		})
	}
	return out
}

// snippetText flattens chunk content to one line and truncates it at a word
// boundary.
func snippetText(content string) string {
	return truncateAtWord(strings.Join(strings.Fields(content), " "), snippetLimit)
}

// truncateAtWord cuts s to at most limit runes without splitting the final
// word. A first word longer than the limit is hard-cut.
func truncateAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return strings.TrimRight(string(runes[:cut]), " ")
}

func isGenericAnswer(answer string) bool {
	if utf8.RuneCountInString(answer) < minUsefulAnswerLen {
		return true
	}
	lower := strings.ToLower(answer)
	for _, marker := range genericAnswerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

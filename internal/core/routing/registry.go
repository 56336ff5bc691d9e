// Package routing decides how a policy question is served: deferred to the
// expense ledger, clarified, or sent to retrieval with or without filters.
// All wording heuristics live in registry.yaml so tuning them is a data edit.
package routing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

type OrgEntry struct {
	Canonical string   `yaml:"canonical"`
	Aliases   []string `yaml:"aliases"`
}

type PolicyTypeEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Registry holds the phrase tables the extractor and router consult.
// Org and policy-type entries keep their file order: earlier entries win
// score ties during inference.
type Registry struct {
	Orgs                 []OrgEntry        `yaml:"orgs"`
	SQLIntentPhrases     []string          `yaml:"sql_intent_phrases"`
	PolicyTypes          []PolicyTypeEntry `yaml:"policy_types"`
	SingleAnswerTriggers []string          `yaml:"single_answer_triggers"`
	ComparisonMarkers    []string          `yaml:"comparison_markers"`
}

func parseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse routing registry: %w", err)
	}
	if len(reg.Orgs) == 0 {
		return nil, fmt.Errorf("routing registry has no organizations")
	}
	for _, org := range reg.Orgs {
		if org.Canonical == "" || len(org.Aliases) == 0 {
			return nil, fmt.Errorf("routing registry org %q is incomplete", org.Canonical)
		}
	}
	return &reg, nil
}

var defaultRegistry = func() *Registry {
	reg, err := parseRegistry(registryYAML)
	if err != nil {
		panic(err)
	}
	return reg
}()

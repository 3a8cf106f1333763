package conflict

import (
	"context"
	"strings"

	"github.com/premiselabs/tenet/pkg/types"
)

// Finding is one raw conflict reported by a detector. Entity order is
// whatever the detector produced; the registry canonicalizes it.
type Finding struct {
	EntityA     string  `json:"entity_a"`
	EntityB     string  `json:"entity_b"`
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// Detector is the conflict-detection oracle. Implementations may call out
// to external services; the registry bounds each call with a deadline and
// treats failures as zero findings.
type Detector interface {
	DetectAssumptionConflicts(ctx context.Context, assumptions []types.Assumption) ([]Finding, error)
	DetectDecisionConflicts(ctx context.Context, decisions []types.Decision) ([]Finding, error)
}

// HeuristicDetector is the built-in oracle. It compares structured
// assumption parameters and decision titles. It stands in where no external
// detection service is configured and never errors.
type HeuristicDetector struct{}

var opposingDirections = map[string]string{
	"up":       "down",
	"increase": "decrease",
	"growth":   "decline",
	"rising":   "falling",
	"expand":   "shrink",
}

func directionsOppose(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return opposingDirections[a] == b || opposingDirections[b] == a
}

func (HeuristicDetector) DetectAssumptionConflicts(_ context.Context, assumptions []types.Assumption) ([]Finding, error) {
	findings := []Finding{}
	for i := 0; i < len(assumptions); i++ {
		for j := i + 1; j < len(assumptions); j++ {
			a, b := assumptions[i], assumptions[j]
			if a.Category == "" || a.Category != b.Category {
				continue
			}
			pa, pb := a.Parameters, b.Parameters
			if pa["timeframe"] != "" && pa["timeframe"] == pb["timeframe"] &&
				directionsOppose(pa["direction"], pb["direction"]) {
				findings = append(findings, Finding{
					EntityA: a.ID, EntityB: b.ID,
					Type:        types.ConflictContradictory,
					Confidence:  0.85,
					Explanation: "opposing direction claimed for the same category and timeframe",
				})
				continue
			}
			if pa["outcome"] != "" && pa["outcome"] == pb["outcome"] &&
				pa["amount"] != "" && pb["amount"] != "" && pa["amount"] != pb["amount"] {
				findings = append(findings, Finding{
					EntityA: a.ID, EntityB: b.ID,
					Type:        types.ConflictPremiseInvalidation,
					Confidence:  0.6,
					Explanation: "same outcome claimed with conflicting amounts",
				})
			}
		}
	}
	return findings, nil
}

var opposingVerbs = map[string]string{
	"adopt":    "abandon",
	"expand":   "cut",
	"increase": "decrease",
	"build":    "retire",
	"hire":     "freeze",
}

func verbsOppose(a, b map[string]bool) bool {
	for va, vb := range opposingVerbs {
		if (a[va] && b[vb]) || (a[vb] && b[va]) {
			return true
		}
	}
	return false
}

// DetectDecisionConflicts flags decision pairs whose titles share subject
// words but pull in opposite directions. Deliberately conservative: an
// external oracle is expected to do the heavy lifting here.
func (HeuristicDetector) DetectDecisionConflicts(_ context.Context, decisions []types.Decision) ([]Finding, error) {
	tokens := make([]map[string]bool, len(decisions))
	for i, d := range decisions {
		tokens[i] = tokenize(d.Title)
	}

	findings := []Finding{}
	for i := 0; i < len(decisions); i++ {
		for j := i + 1; j < len(decisions); j++ {
			if sharedTokens(tokens[i], tokens[j]) < 1 || !verbsOppose(tokens[i], tokens[j]) {
				continue
			}
			findings = append(findings, Finding{
				EntityA: decisions[i].ID, EntityB: decisions[j].ID,
				Type:        types.ConflictContradictory,
				Confidence:  0.5,
				Explanation: "titles pull the same subject in opposite directions",
			})
		}
	}
	return findings, nil
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "in": true,
	"of": true, "on": true, "the": true, "to": true, "with": true,
}

func tokenize(title string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(title)) {
		tok = strings.Trim(tok, ".,:;!?")
		if tok == "" || stopwords[tok] {
			continue
		}
		out[tok] = true
	}
	return out
}

func sharedTokens(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if _, opposer := opposingVerbs[tok]; opposer {
			continue
		}
		if b[tok] {
			n++
		}
	}
	return n
}

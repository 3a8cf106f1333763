package types

// AssumptionStatus is the canonical validity of an assumption. The legacy
// spelling HOLDING is normalized to VALID at the ingestion boundary and
// never appears downstream.
type AssumptionStatus string

const (
	AssumptionValid  AssumptionStatus = "VALID"
	AssumptionShaky  AssumptionStatus = "SHAKY"
	AssumptionBroken AssumptionStatus = "BROKEN"
)

// NormalizeAssumptionStatus maps aliases onto the canonical enum. The
// second return is false for unrecognized values.
func NormalizeAssumptionStatus(raw string) (AssumptionStatus, bool) {
	switch AssumptionStatus(raw) {
	case AssumptionValid, AssumptionShaky, AssumptionBroken:
		return AssumptionStatus(raw), true
	}
	if raw == "HOLDING" {
		return AssumptionValid, true
	}
	return "", false
}

// AssumptionScope distinguishes beliefs shared by every decision from
// beliefs owned by exactly one decision.
type AssumptionScope string

const (
	ScopeUniversal        AssumptionScope = "UNIVERSAL"
	ScopeDecisionSpecific AssumptionScope = "DECISION_SPECIFIC"
)

func ValidScope(s AssumptionScope) bool {
	return s == ScopeUniversal || s == ScopeDecisionSpecific
}

// Assumption is a belief a decision rests on. Parameters carry structured
// claims (timeframe, amount, outcome, direction) that the conflict detector
// compares across assumptions.
type Assumption struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Status      AssumptionStatus  `json:"status"`
	Scope       AssumptionScope   `json:"scope"`
	Category    string            `json:"category"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	ValidatedAt string            `json:"validated_at,omitempty"`
}

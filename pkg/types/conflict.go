package types

// ConflictKind separates assumption-pair conflicts from decision-pair
// conflicts. Both share one record shape.
type ConflictKind string

const (
	ConflictAssumptions ConflictKind = "assumption"
	ConflictDecisions   ConflictKind = "decision"
)

// Decision conflict types reported by the detection oracle.
const (
	ConflictContradictory       = "CONTRADICTORY"
	ConflictResourceCompetition = "RESOURCE_COMPETITION"
	ConflictObjectiveUndermine  = "OBJECTIVE_UNDERMINING"
	ConflictPremiseInvalidation = "PREMISE_INVALIDATION"
	ConflictMutuallyExclusive   = "MUTUALLY_EXCLUSIVE"
)

func ValidDecisionConflictType(t string) bool {
	switch t {
	case ConflictContradictory, ConflictResourceCompetition, ConflictObjectiveUndermine,
		ConflictPremiseInvalidation, ConflictMutuallyExclusive:
		return true
	}
	return false
}

// ResolutionAction is how a decision conflict was settled.
type ResolutionAction string

const (
	ResolvePrioritizeA   ResolutionAction = "PRIORITIZE_A"
	ResolvePrioritizeB   ResolutionAction = "PRIORITIZE_B"
	ResolveModifyBoth    ResolutionAction = "MODIFY_BOTH"
	ResolveDeprecateBoth ResolutionAction = "DEPRECATE_BOTH"
	ResolveKeepBoth      ResolutionAction = "KEEP_BOTH"
)

func ValidResolutionAction(a ResolutionAction) bool {
	switch a {
	case ResolvePrioritizeA, ResolvePrioritizeB, ResolveModifyBoth, ResolveDeprecateBoth, ResolveKeepBoth:
		return true
	}
	return false
}

// Conflict is a detected contradiction between two entities of the same
// kind. EntityA and EntityB are stored in lexicographic order so a pair has
// exactly one open record regardless of detection order.
type Conflict struct {
	ID               string       `json:"id"`
	Kind             ConflictKind `json:"kind"`
	EntityA          string       `json:"entity_a"`
	EntityB          string       `json:"entity_b"`
	ConflictType     string       `json:"conflict_type"`
	Confidence       float64      `json:"confidence"`
	Explanation      string       `json:"explanation,omitempty"`
	DetectedAt       string       `json:"detected_at"`
	Resolved         bool         `json:"resolved"`
	ResolutionAction string       `json:"resolution_action,omitempty"`
	ResolutionNotes  string       `json:"resolution_notes,omitempty"`
	ResolvedAt       *string      `json:"resolved_at,omitempty"`
}

// PairKey returns the order-independent identity of the conflicting pair.
func (c Conflict) PairKey() string {
	return PairKey(c.Kind, c.EntityA, c.EntityB)
}

// PairKey builds the canonical pair identity for a conflict kind and two
// entity ids, sorting the ids so (a,b) and (b,a) collide.
func PairKey(kind ConflictKind, a, b string) string {
	if b < a {
		a, b = b, a
	}
	return string(kind) + ":" + a + ":" + b
}

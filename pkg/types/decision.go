package types

// Lifecycle is the stored lifecycle of a decision. RETIRED and INVALIDATED
// are terminal: once stored they are never recomputed away.
type Lifecycle string

const (
	LifecycleStable      Lifecycle = "STABLE"
	LifecycleUnderReview Lifecycle = "UNDER_REVIEW"
	LifecycleAtRisk      Lifecycle = "AT_RISK"
	LifecycleInvalidated Lifecycle = "INVALIDATED"
	LifecycleRetired     Lifecycle = "RETIRED"
)

func ValidLifecycle(lc Lifecycle) bool {
	switch lc {
	case LifecycleStable, LifecycleUnderReview, LifecycleAtRisk, LifecycleInvalidated, LifecycleRetired:
		return true
	}
	return false
}

// GovernanceTier classifies how risky a decision is to change. Edits to
// high_impact and critical decisions by non-lead actors go through the
// edit-request queue.
type GovernanceTier string

const (
	TierStandard   GovernanceTier = "standard"
	TierHighImpact GovernanceTier = "high_impact"
	TierCritical   GovernanceTier = "critical"
)

func ValidTier(t GovernanceTier) bool {
	switch t {
	case TierStandard, TierHighImpact, TierCritical:
		return true
	}
	return false
}

// Decision is a tracked organizational choice. Timestamps are RFC3339 UTC
// strings; nullable timestamps are pointers.
type Decision struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Lifecycle      Lifecycle      `json:"lifecycle"`
	HealthSignal   int            `json:"health_signal"`
	GovernanceTier GovernanceTier `json:"governance_tier"`
	LockedAt       *string        `json:"locked_at,omitempty"`
	LockReason     string         `json:"lock_reason,omitempty"`
	LockedBy       string         `json:"locked_by,omitempty"`
	ExpiryDate     *string        `json:"expiry_date,omitempty"`
	CreatedAt      string         `json:"created_at"`
	LastReviewedAt string         `json:"last_reviewed_at,omitempty"`
	CreatedBy      string         `json:"created_by"`
}

// Locked reports whether the decision carries an administrative hold.
func (d Decision) Locked() bool {
	return d.LockedAt != nil && *d.LockedAt != ""
}

// DependencyRelation is the kind of directed edge between two decisions.
type DependencyRelation string

const (
	RelationDependsOn DependencyRelation = "DEPENDS_ON"
	RelationBlocks    DependencyRelation = "BLOCKS"
)

func ValidRelation(r DependencyRelation) bool {
	return r == RelationDependsOn || r == RelationBlocks
}

// Dependency is a directed decision→decision edge. IsDeprecated and
// DeprecationWarning are derived at read time from the target's lifecycle.
type Dependency struct {
	ID                 string             `json:"id"`
	FromDecisionID     string             `json:"from_decision_id"`
	ToDecisionID       string             `json:"to_decision_id"`
	Relation           DependencyRelation `json:"relation"`
	CreatedAt          string             `json:"created_at"`
	IsDeprecated       bool               `json:"is_deprecated"`
	DeprecationWarning string             `json:"deprecation_warning,omitempty"`
}

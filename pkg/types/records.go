package types

// ReviewRecord is an append-only note of a human review. Records are never
// mutated after insert.
type ReviewRecord struct {
	ID             string  `json:"id"`
	DecisionID     string  `json:"decision_id"`
	Reviewer       string  `json:"reviewer"`
	Comment        string  `json:"comment"`
	ReviewType     string  `json:"review_type"`
	ReviewOutcome  string  `json:"review_outcome"`
	DeferralReason string  `json:"deferral_reason,omitempty"`
	NextReviewDate *string `json:"next_review_date,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// RetirementOutcome is the recognized set of ways a decision can end.
type RetirementOutcome string

const (
	OutcomeFailed             RetirementOutcome = "failed"
	OutcomeSucceeded          RetirementOutcome = "succeeded"
	OutcomePartiallySucceeded RetirementOutcome = "partially_succeeded"
	OutcomeSuperseded         RetirementOutcome = "superseded"
	OutcomeNoLongerRelevant   RetirementOutcome = "no_longer_relevant"
)

func ValidRetirementOutcome(o RetirementOutcome) bool {
	switch o {
	case OutcomeFailed, OutcomeSucceeded, OutcomePartiallySucceeded, OutcomeSuperseded, OutcomeNoLongerRelevant:
		return true
	}
	return false
}

// RetirementConclusions captures the post-mortem attached to a retirement.
type RetirementConclusions struct {
	WhatHappened    string   `json:"what_happened"`
	WhyOutcome      string   `json:"why_outcome"`
	LessonsLearned  []string `json:"lessons_learned,omitempty"`
	KeyIssues       []string `json:"key_issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	FailureReasons  []string `json:"failure_reasons,omitempty"`
}

// RetirementRecord is written once when a decision is retired. Retirement
// is irreversible through the engine.
type RetirementRecord struct {
	DecisionID  string                `json:"decision_id"`
	Outcome     RetirementOutcome     `json:"outcome"`
	Conclusions RetirementConclusions `json:"conclusions"`
	CreatedAt   string                `json:"created_at"`
}

// EditRequestChange distinguishes what a pending edit request would do.
type EditRequestChange string

const (
	EditChangeUpdate EditRequestChange = "update"
	EditChangeDelete EditRequestChange = "delete"
)

// EditRequest is a tier-gated mutation waiting for a lead to approve or
// reject it. PatchJSON holds the deferred update body for update changes.
type EditRequest struct {
	AuditID        string            `json:"audit_id"`
	DecisionID     string            `json:"decision_id"`
	RequestedBy    string            `json:"requested_by"`
	Justification  string            `json:"justification,omitempty"`
	GovernanceTier GovernanceTier    `json:"governance_tier"`
	Change         EditRequestChange `json:"change"`
	PatchJSON      []byte            `json:"patch,omitempty"`
	RequestedAt    string            `json:"requested_at"`
	Resolved       bool              `json:"resolved"`
	Approved       *bool             `json:"approved,omitempty"`
	ResolvedBy     string            `json:"resolved_by,omitempty"`
	ResolvedAt     *string           `json:"resolved_at,omitempty"`
}

// ConstraintViolation records a breach of an organization-wide constraint.
type ConstraintViolation struct {
	ID             string  `json:"id"`
	DecisionID     string  `json:"decision_id"`
	ConstraintName string  `json:"constraint_name"`
	Reason         string  `json:"reason"`
	DetectedAt     string  `json:"detected_at"`
	Resolved       bool    `json:"resolved"`
	ResolvedAt     *string `json:"resolved_at,omitempty"`
}

// Package lifecycle derives the effective lifecycle of a decision and
// guards the transitions that user operations may perform. The stored
// lifecycle is only authoritative for the two terminal states; everything
// else is recomputed at read time from health and open conflicts.
package lifecycle

import (
	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/pkg/types"
)

// Health bands for the derived lifecycle.
const (
	AtRiskBelow = 65
	StableFrom  = 85
)

// Terminal reports whether a stored lifecycle is final. Terminal lifecycles
// are returned as-is and never recomputed away.
func Terminal(lc types.Lifecycle) bool {
	return lc == types.LifecycleRetired || lc == types.LifecycleInvalidated
}

// Effective derives the lifecycle a reader should see. Unresolved conflicts
// cap the result at UNDER_REVIEW even with excellent health.
func Effective(stored types.Lifecycle, healthSignal, openConflicts int) types.Lifecycle {
	if Terminal(stored) {
		return stored
	}
	if openConflicts > 0 {
		if healthSignal < AtRiskBelow {
			return types.LifecycleAtRisk
		}
		return types.LifecycleUnderReview
	}
	switch {
	case healthSignal < AtRiskBelow:
		return types.LifecycleAtRisk
	case healthSignal < StableFrom:
		return types.LifecycleUnderReview
	default:
		return types.LifecycleStable
	}
}

// CheckReviewable rejects reviews of retired decisions.
func CheckReviewable(d types.Decision) error {
	if d.Lifecycle == types.LifecycleRetired {
		return errcode.New(errcode.CodeRetired, "decision %s is retired", d.ID)
	}
	return nil
}

// CheckEvaluable rejects evaluation of retired decisions. INVALIDATED stays
// evaluable only in the sense that it is read back unchanged; the derived
// value never leaves a terminal state.
func CheckEvaluable(d types.Decision) error {
	if d.Lifecycle == types.LifecycleRetired {
		return errcode.New(errcode.CodeRetired, "decision %s is retired", d.ID)
	}
	return nil
}

// ValidateRetirement enforces the retirement invariants before any write: a
// recognized outcome, and for failed outcomes a stated cause with at least
// one failure reason.
func ValidateRetirement(d types.Decision, outcome types.RetirementOutcome, conclusions types.RetirementConclusions) error {
	if d.Lifecycle == types.LifecycleRetired {
		return errcode.New(errcode.CodeRetired, "decision %s is already retired", d.ID)
	}
	if !types.ValidRetirementOutcome(outcome) {
		return errcode.New(errcode.CodeValidation, "unrecognized retirement outcome %q", outcome)
	}
	if outcome == types.OutcomeFailed {
		if conclusions.WhyOutcome == "" {
			return errcode.New(errcode.CodeValidation, "failed retirement requires why_outcome")
		}
		if len(conclusions.FailureReasons) == 0 {
			return errcode.New(errcode.CodeValidation, "failed retirement requires at least one failure reason")
		}
	}
	return nil
}

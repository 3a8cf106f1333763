package engine

import (
	"context"

	"github.com/premiselabs/tenet/pkg/types"
)

// DetectAssumptionConflicts runs the oracle over assumptions and reports
// newly recorded conflicts.
func (e *Engine) DetectAssumptionConflicts(ctx context.Context) (int, error) {
	return e.conflicts.DetectAssumptionConflicts(ctx)
}

// DetectDecisionConflicts runs the oracle over decisions and reports newly
// recorded conflicts.
func (e *Engine) DetectDecisionConflicts(ctx context.Context) (int, error) {
	return e.conflicts.DetectDecisionConflicts(ctx)
}

// ListConflicts reads conflicts of one kind, optionally filtered by
// resolution state.
func (e *Engine) ListConflicts(kind types.ConflictKind, resolved *bool) ([]types.Conflict, error) {
	return e.store.ListConflicts(kind, resolved)
}

// ListOpenConflictsForDecision reads the unresolved decision conflicts
// naming a decision.
func (e *Engine) ListOpenConflictsForDecision(decisionID string) ([]types.Conflict, error) {
	if _, err := e.getDecision(decisionID); err != nil {
		return nil, err
	}
	return e.store.ListOpenConflictsForEntity(types.ConflictDecisions, decisionID)
}

// ResolutionOutcome reports a settled conflict and how many decisions were
// re-evaluated because of it.
type ResolutionOutcome struct {
	Conflict    types.Conflict `json:"conflict"`
	Reevaluated int            `json:"reevaluated"`
}

// ResolveConflict settles a conflict and immediately re-evaluates the
// decisions it weighed on, so their effective lifecycles reflect the
// resolution without waiting for the next batch.
func (e *Engine) ResolveConflict(id, action, notes string) (ResolutionOutcome, error) {
	affected, err := e.conflicts.Resolve(id, action, notes)
	if err != nil {
		return ResolutionOutcome{}, err
	}
	n := e.reevaluate(affected)
	c, _ := e.store.GetConflict(id)
	return ResolutionOutcome{Conflict: c, Reevaluated: n}, nil
}

// DismissConflict hard-deletes a false positive. No re-evaluation: the
// record never should have existed.
func (e *Engine) DismissConflict(id string) error {
	return e.conflicts.DismissFalsePositive(id)
}

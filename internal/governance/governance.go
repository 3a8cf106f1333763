// Package governance holds the pure mutation-gating rules: administrative
// locks, tier-gated edits, and lead-only operations.
package governance

import (
	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/pkg/types"
)

// CheckMutation rejects writes to a locked decision by non-elevated actors.
// Elevated actors pass through; the lock stays in place until explicitly
// removed.
func CheckMutation(d types.Decision, actor types.Actor) error {
	if d.Locked() && !actor.Elevated() {
		return errcode.New(errcode.CodeLocked, "decision %s is locked: %s", d.ID, d.LockReason)
	}
	return nil
}

// NeedsApproval reports whether the actor's mutation must be queued as an
// edit request instead of applied directly. Only high_impact and critical
// decisions are gated, and only for non-elevated actors.
func NeedsApproval(d types.Decision, actor types.Actor) bool {
	if actor.Elevated() {
		return false
	}
	return d.GovernanceTier == types.TierHighImpact || d.GovernanceTier == types.TierCritical
}

// CheckLockToggle restricts lock and unlock to leads.
func CheckLockToggle(actor types.Actor) error {
	if !actor.Elevated() {
		return errcode.New(errcode.CodeForbidden, "lock toggling requires a lead")
	}
	return nil
}

// CheckApproval restricts edit-request resolution to leads.
func CheckApproval(actor types.Actor) error {
	if !actor.Elevated() {
		return errcode.New(errcode.CodeForbidden, "resolving edit requests requires a lead")
	}
	return nil
}

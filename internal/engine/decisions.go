package engine

import (
	"encoding/json"

	"golang.org/x/text/unicode/norm"

	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/governance"
	"github.com/premiselabs/tenet/internal/lifecycle"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

// CreateDecisionInput is the caller-supplied part of a new decision.
type CreateDecisionInput struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	HealthSignal   *int                 `json:"health_signal"`
	GovernanceTier types.GovernanceTier `json:"governance_tier"`
	ExpiryDate     *string              `json:"expiry_date"`
}

// CreateDecision persists a new decision. New decisions start STABLE with a
// full health signal unless told otherwise, and count as freshly reviewed.
func (e *Engine) CreateDecision(actor types.Actor, in CreateDecisionInput) (types.Decision, error) {
	if in.Title == "" {
		return types.Decision{}, errcode.New(errcode.CodeValidation, "title is required")
	}
	healthSignal := 100
	if in.HealthSignal != nil {
		if *in.HealthSignal < 0 || *in.HealthSignal > 100 {
			return types.Decision{}, errcode.New(errcode.CodeValidation, "health_signal must be in [0,100]")
		}
		healthSignal = *in.HealthSignal
	}
	tier := in.GovernanceTier
	if tier == "" {
		tier = types.TierStandard
	}
	if !types.ValidTier(tier) {
		return types.Decision{}, errcode.New(errcode.CodeValidation, "unknown governance tier %q", tier)
	}

	now := e.timestamp()
	d := types.Decision{
		ID:             newID("dec"),
		Title:          norm.NFC.String(in.Title),
		Description:    norm.NFC.String(in.Description),
		Lifecycle:      lifecycle.Effective(types.LifecycleStable, healthSignal, 0),
		HealthSignal:   healthSignal,
		GovernanceTier: tier,
		ExpiryDate:     in.ExpiryDate,
		CreatedAt:      now,
		LastReviewedAt: now,
		CreatedBy:      actor.Subject,
	}

	err := e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutDecision(d); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", d.ID, "created")
	})
	if err != nil {
		return types.Decision{}, err
	}
	return d, nil
}

// GetDecision reads a decision with its derived view.
func (e *Engine) GetDecision(id string) (DecisionView, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return DecisionView{}, err
	}
	return e.view(d)
}

// ListDecisions reads all decisions with their derived views.
func (e *Engine) ListDecisions() ([]DecisionView, error) {
	all, err := e.store.ListDecisions()
	if err != nil {
		return nil, err
	}
	out := make([]DecisionView, 0, len(all))
	for _, d := range all {
		v, err := e.view(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// UpdateDecisionInput is a partial update; nil fields are untouched.
// Lifecycle may only be set to INVALIDATED, and only by a lead.
type UpdateDecisionInput struct {
	Title          *string               `json:"title"`
	Description    *string               `json:"description"`
	HealthSignal   *int                  `json:"health_signal"`
	GovernanceTier *types.GovernanceTier `json:"governance_tier"`
	Lifecycle      *types.Lifecycle      `json:"lifecycle"`
	ExpiryDate     *string               `json:"expiry_date"`
	Justification  string                `json:"justification"`
}

// UpdateResult reports whether the change applied or went to the approval
// queue.
type UpdateResult struct {
	Applied        bool          `json:"applied"`
	Decision       *DecisionView `json:"decision,omitempty"`
	PendingAuditID string        `json:"pending_audit_id,omitempty"`
}

// UpdateDecision applies a partial update, or queues it as an edit request
// when the governance tier demands lead approval.
func (e *Engine) UpdateDecision(actor types.Actor, id string, in UpdateDecisionInput) (UpdateResult, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return UpdateResult{}, err
	}
	if d.Lifecycle == types.LifecycleRetired {
		return UpdateResult{}, errcode.New(errcode.CodeRetired, "decision %s is retired", id)
	}
	if err := governance.CheckMutation(d, actor); err != nil {
		return UpdateResult{}, err
	}
	if err := validateUpdate(in, actor); err != nil {
		return UpdateResult{}, err
	}

	if governance.NeedsApproval(d, actor) {
		auditID, err := e.queueEditRequest(d, actor, types.EditChangeUpdate, in)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Applied: false, PendingAuditID: auditID}, nil
	}

	applied := applyUpdate(d, in)
	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutDecision(applied); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", id, "updated")
	})
	if err != nil {
		return UpdateResult{}, err
	}
	v, err := e.view(applied)
	if err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Applied: true, Decision: &v}, nil
}

func validateUpdate(in UpdateDecisionInput, actor types.Actor) error {
	if in.Title != nil && *in.Title == "" {
		return errcode.New(errcode.CodeValidation, "title cannot be emptied")
	}
	if in.HealthSignal != nil && (*in.HealthSignal < 0 || *in.HealthSignal > 100) {
		return errcode.New(errcode.CodeValidation, "health_signal must be in [0,100]")
	}
	if in.GovernanceTier != nil && !types.ValidTier(*in.GovernanceTier) {
		return errcode.New(errcode.CodeValidation, "unknown governance tier %q", *in.GovernanceTier)
	}
	if in.Lifecycle != nil {
		if *in.Lifecycle != types.LifecycleInvalidated {
			return errcode.New(errcode.CodeValidation, "lifecycle may only be set to INVALIDATED; retirement has its own operation")
		}
		if !actor.Elevated() {
			return errcode.New(errcode.CodeForbidden, "invalidating a decision requires a lead")
		}
	}
	return nil
}

func applyUpdate(d types.Decision, in UpdateDecisionInput) types.Decision {
	if in.Title != nil {
		d.Title = norm.NFC.String(*in.Title)
	}
	if in.Description != nil {
		d.Description = norm.NFC.String(*in.Description)
	}
	if in.HealthSignal != nil {
		d.HealthSignal = *in.HealthSignal
	}
	if in.GovernanceTier != nil {
		d.GovernanceTier = *in.GovernanceTier
	}
	if in.Lifecycle != nil {
		d.Lifecycle = *in.Lifecycle
	}
	if in.ExpiryDate != nil {
		d.ExpiryDate = in.ExpiryDate
	}
	return d
}

// DeleteResult reports whether the delete applied or went to the approval
// queue.
type DeleteResult struct {
	Deleted        bool   `json:"deleted"`
	PendingAuditID string `json:"pending_audit_id,omitempty"`
}

// DeleteDecision removes a decision and everything hanging off it, or
// queues the delete for approval on gated tiers.
func (e *Engine) DeleteDecision(actor types.Actor, id string, justification string) (DeleteResult, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := governance.CheckMutation(d, actor); err != nil {
		return DeleteResult{}, err
	}

	if governance.NeedsApproval(d, actor) {
		auditID, err := e.queueEditRequest(d, actor, types.EditChangeDelete, UpdateDecisionInput{Justification: justification})
		if err != nil {
			return DeleteResult{}, err
		}
		return DeleteResult{Deleted: false, PendingAuditID: auditID}, nil
	}

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.DeleteDecision(id); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", id, "deleted")
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Deleted: true}, nil
}

func (e *Engine) queueEditRequest(d types.Decision, actor types.Actor, change types.EditRequestChange, in UpdateDecisionInput) (string, error) {
	patch, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req := types.EditRequest{
		AuditID:        newID("audit"),
		DecisionID:     d.ID,
		RequestedBy:    actor.Subject,
		Justification:  in.Justification,
		GovernanceTier: d.GovernanceTier,
		Change:         change,
		PatchJSON:      patch,
		RequestedAt:    e.timestamp(),
	}
	if err := e.store.PutEditRequest(req); err != nil {
		return "", err
	}
	return req.AuditID, nil
}

// Lock places or removes an administrative hold. Lead only; locking
// requires a reason.
func (e *Engine) Lock(actor types.Actor, id string, lock bool, reason string) (types.Decision, error) {
	if err := governance.CheckLockToggle(actor); err != nil {
		return types.Decision{}, err
	}
	d, err := e.getDecision(id)
	if err != nil {
		return types.Decision{}, err
	}

	change := "unlocked"
	if lock {
		if reason == "" {
			return types.Decision{}, errcode.New(errcode.CodeValidation, "locking requires a reason")
		}
		at := e.timestamp()
		d.LockedAt = &at
		d.LockReason = reason
		d.LockedBy = actor.Subject
		change = "locked"
	} else {
		d.LockedAt = nil
		d.LockReason = ""
		d.LockedBy = ""
	}

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutDecision(d); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", id, change)
	})
	if err != nil {
		return types.Decision{}, err
	}
	return d, nil
}

// ReviewInput is the caller-supplied part of a review.
type ReviewInput struct {
	Comment        string  `json:"comment"`
	ReviewType     string  `json:"review_type"`
	ReviewOutcome  string  `json:"review_outcome"`
	DeferralReason string  `json:"deferral_reason"`
	NextReviewDate *string `json:"next_review_date"`
}

// Review appends a review record and refreshes lastReviewedAt. It does not
// re-evaluate in the same transaction: the freshly reviewed state must be
// observable before any recompute can contest it.
func (e *Engine) Review(actor types.Actor, id string, in ReviewInput) (types.ReviewRecord, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return types.ReviewRecord{}, err
	}
	if err := lifecycle.CheckReviewable(d); err != nil {
		return types.ReviewRecord{}, err
	}
	if err := governance.CheckMutation(d, actor); err != nil {
		return types.ReviewRecord{}, err
	}

	now := e.timestamp()
	rec := types.ReviewRecord{
		ID:             newID("rev"),
		DecisionID:     id,
		Reviewer:       actor.Subject,
		Comment:        norm.NFC.String(in.Comment),
		ReviewType:     in.ReviewType,
		ReviewOutcome:  in.ReviewOutcome,
		DeferralReason: in.DeferralReason,
		NextReviewDate: in.NextReviewDate,
		CreatedAt:      now,
	}
	d.LastReviewedAt = now

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.AppendReview(rec); err != nil {
			return err
		}
		if err := ops.PutDecision(d); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", id, "reviewed")
	})
	if err != nil {
		return types.ReviewRecord{}, err
	}
	return rec, nil
}

// ListReviews reads the review history for a decision.
func (e *Engine) ListReviews(id string) ([]types.ReviewRecord, error) {
	if _, err := e.getDecision(id); err != nil {
		return nil, err
	}
	return e.store.ListReviews(id)
}

// Retire closes a decision for good: lifecycle becomes RETIRED and the
// retirement record persists in the same transaction. Irreversible.
func (e *Engine) Retire(actor types.Actor, id string, outcome types.RetirementOutcome, conclusions types.RetirementConclusions) (types.RetirementRecord, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return types.RetirementRecord{}, err
	}
	if err := governance.CheckMutation(d, actor); err != nil {
		return types.RetirementRecord{}, err
	}
	if err := lifecycle.ValidateRetirement(d, outcome, conclusions); err != nil {
		return types.RetirementRecord{}, err
	}

	rec := types.RetirementRecord{
		DecisionID:  id,
		Outcome:     outcome,
		Conclusions: conclusions,
		CreatedAt:   e.timestamp(),
	}
	d.Lifecycle = types.LifecycleRetired

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutDecision(d); err != nil {
			return err
		}
		if err := ops.PutRetirement(rec); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", id, "retired")
	})
	if err != nil {
		return types.RetirementRecord{}, err
	}
	return rec, nil
}

// GetRetirement reads the retirement record for a decision.
func (e *Engine) GetRetirement(id string) (types.RetirementRecord, error) {
	rec, ok := e.store.GetRetirement(id)
	if !ok {
		return types.RetirementRecord{}, errcode.New(errcode.CodeNotFound, "no retirement record for decision %s", id)
	}
	return rec, nil
}

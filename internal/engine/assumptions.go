package engine

import (
	"golang.org/x/text/unicode/norm"

	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

// CreateAssumptionInput is the caller-supplied part of a new assumption.
// Status accepts the legacy HOLDING spelling and stores it as VALID.
type CreateAssumptionInput struct {
	Description string                `json:"description"`
	Status      string                `json:"status"`
	Scope       types.AssumptionScope `json:"scope"`
	Category    string                `json:"category"`
	Parameters  map[string]string     `json:"parameters"`
}

// CreateAssumption persists a new assumption after normalization.
func (e *Engine) CreateAssumption(in CreateAssumptionInput) (types.Assumption, error) {
	if in.Description == "" {
		return types.Assumption{}, errcode.New(errcode.CodeValidation, "description is required")
	}
	raw := in.Status
	if raw == "" {
		raw = string(types.AssumptionValid)
	}
	status, ok := types.NormalizeAssumptionStatus(raw)
	if !ok {
		return types.Assumption{}, errcode.New(errcode.CodeValidation, "unknown assumption status %q", in.Status)
	}
	scope := in.Scope
	if scope == "" {
		scope = types.ScopeDecisionSpecific
	}
	if !types.ValidScope(scope) {
		return types.Assumption{}, errcode.New(errcode.CodeValidation, "unknown assumption scope %q", scope)
	}

	a := types.Assumption{
		ID:          newID("asm"),
		Description: norm.NFC.String(in.Description),
		Status:      status,
		Scope:       scope,
		Category:    in.Category,
		Parameters:  in.Parameters,
		ValidatedAt: e.timestamp(),
	}
	err := e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutAssumption(a); err != nil {
			return err
		}
		return e.appendChange(ops, "assumption", a.ID, "created")
	})
	if err != nil {
		return types.Assumption{}, err
	}
	return a, nil
}

// GetAssumption reads one assumption.
func (e *Engine) GetAssumption(id string) (types.Assumption, error) {
	a, ok := e.store.GetAssumption(id)
	if !ok {
		return types.Assumption{}, errcode.New(errcode.CodeNotFound, "assumption %s not found", id)
	}
	return a, nil
}

// ListAssumptions reads all assumptions.
func (e *Engine) ListAssumptions() ([]types.Assumption, error) {
	return e.store.ListAssumptions()
}

// UpdateAssumptionInput is a partial update; nil fields are untouched.
type UpdateAssumptionInput struct {
	Description *string           `json:"description"`
	Status      *string           `json:"status"`
	Category    *string           `json:"category"`
	Parameters  map[string]string `json:"parameters"`
}

// UpdateAssumption applies a partial update. A status change refreshes
// validatedAt.
func (e *Engine) UpdateAssumption(id string, in UpdateAssumptionInput) (types.Assumption, error) {
	a, err := e.GetAssumption(id)
	if err != nil {
		return types.Assumption{}, err
	}
	if in.Description != nil {
		if *in.Description == "" {
			return types.Assumption{}, errcode.New(errcode.CodeValidation, "description cannot be emptied")
		}
		a.Description = norm.NFC.String(*in.Description)
	}
	if in.Status != nil {
		status, ok := types.NormalizeAssumptionStatus(*in.Status)
		if !ok {
			return types.Assumption{}, errcode.New(errcode.CodeValidation, "unknown assumption status %q", *in.Status)
		}
		a.Status = status
		a.ValidatedAt = e.timestamp()
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.Parameters != nil {
		a.Parameters = in.Parameters
	}

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutAssumption(a); err != nil {
			return err
		}
		return e.appendChange(ops, "assumption", id, "updated")
	})
	if err != nil {
		return types.Assumption{}, err
	}
	return a, nil
}

// DeleteAssumption removes an assumption, its decision links, and its
// conflicts.
func (e *Engine) DeleteAssumption(id string) error {
	if _, err := e.GetAssumption(id); err != nil {
		return err
	}
	return e.store.WithTx(func(ops store.Ops) error {
		if err := ops.DeleteAssumption(id); err != nil {
			return err
		}
		return e.appendChange(ops, "assumption", id, "deleted")
	})
}

// LinkAssumption attaches an assumption to a decision. Idempotent.
func (e *Engine) LinkAssumption(decisionID, assumptionID string) error {
	if _, err := e.getDecision(decisionID); err != nil {
		return err
	}
	if _, err := e.GetAssumption(assumptionID); err != nil {
		return err
	}
	return e.store.LinkAssumption(decisionID, assumptionID)
}

// UnlinkAssumption detaches an assumption from a decision.
func (e *Engine) UnlinkAssumption(decisionID, assumptionID string) error {
	if _, err := e.getDecision(decisionID); err != nil {
		return err
	}
	return e.store.UnlinkAssumption(decisionID, assumptionID)
}

// ListAssumptionsForDecision reads the assumptions linked to a decision.
func (e *Engine) ListAssumptionsForDecision(decisionID string) ([]types.Assumption, error) {
	if _, err := e.getDecision(decisionID); err != nil {
		return nil, err
	}
	ids, err := e.store.ListAssumptionIDsForDecision(decisionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Assumption, 0, len(ids))
	for _, id := range ids {
		if a, ok := e.store.GetAssumption(id); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

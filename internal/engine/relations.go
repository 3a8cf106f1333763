package engine

import (
	"encoding/json"
	"fmt"

	"github.com/premiselabs/tenet/internal/constraint"
	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/governance"
	"github.com/premiselabs/tenet/internal/lifecycle"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

// AddDependency records a directed edge between two existing decisions.
func (e *Engine) AddDependency(fromID, toID string, relation types.DependencyRelation) (types.Dependency, error) {
	if fromID == toID {
		return types.Dependency{}, errcode.New(errcode.CodeValidation, "a decision cannot depend on itself")
	}
	if !types.ValidRelation(relation) {
		return types.Dependency{}, errcode.New(errcode.CodeValidation, "unknown relation %q", relation)
	}
	if _, err := e.getDecision(fromID); err != nil {
		return types.Dependency{}, err
	}
	if _, err := e.getDecision(toID); err != nil {
		return types.Dependency{}, err
	}

	dep := types.Dependency{
		ID:             newID("dep"),
		FromDecisionID: fromID,
		ToDecisionID:   toID,
		Relation:       relation,
		CreatedAt:      e.timestamp(),
	}
	if err := e.store.PutDependency(dep); err != nil {
		return types.Dependency{}, err
	}
	return e.decorateDependency(dep), nil
}

// ListDependencies reads a decision's outgoing edges with the derived
// deprecation flag filled in.
func (e *Engine) ListDependencies(decisionID string) ([]types.Dependency, error) {
	if _, err := e.getDecision(decisionID); err != nil {
		return nil, err
	}
	deps, err := e.store.ListDependenciesFrom(decisionID)
	if err != nil {
		return nil, err
	}
	out := make([]types.Dependency, 0, len(deps))
	for _, dep := range deps {
		out = append(out, e.decorateDependency(dep))
	}
	return out, nil
}

// DeleteDependency removes an edge.
func (e *Engine) DeleteDependency(id string) error {
	return e.store.DeleteDependency(id)
}

func (e *Engine) decorateDependency(dep types.Dependency) types.Dependency {
	target, ok := e.store.GetDecision(dep.ToDecisionID)
	if ok && lifecycle.Terminal(target.Lifecycle) {
		dep.IsDeprecated = true
		dep.DeprecationWarning = fmt.Sprintf("decision %s is %s", dep.ToDecisionID, target.Lifecycle)
	}
	return dep
}

// Constraints returns the loaded organization-wide constraint set and its
// content hash. Constraints apply to every decision.
func (e *Engine) Constraints() (constraint.Set, string) {
	return e.constraints.Set, e.constraints.Hash
}

// ReportViolation records a breach of a named constraint against a
// decision.
func (e *Engine) ReportViolation(decisionID, constraintName, reason string) (types.ConstraintViolation, error) {
	if _, err := e.getDecision(decisionID); err != nil {
		return types.ConstraintViolation{}, err
	}
	if _, ok := e.constraints.ByName(constraintName); !ok {
		return types.ConstraintViolation{}, errcode.New(errcode.CodeValidation, "unknown constraint %q", constraintName)
	}

	v := types.ConstraintViolation{
		ID:             newID("vio"),
		DecisionID:     decisionID,
		ConstraintName: constraintName,
		Reason:         reason,
		DetectedAt:     e.timestamp(),
	}
	if err := e.store.PutViolation(v); err != nil {
		return types.ConstraintViolation{}, err
	}
	return v, nil
}

// ListViolations reads a decision's constraint violations, optionally
// filtered by resolution state.
func (e *Engine) ListViolations(decisionID string, resolved *bool) ([]types.ConstraintViolation, error) {
	if _, err := e.getDecision(decisionID); err != nil {
		return nil, err
	}
	return e.store.ListViolations(decisionID, resolved)
}

// ResolveViolation marks a violation handled.
func (e *Engine) ResolveViolation(id string) (types.ConstraintViolation, error) {
	v, ok := e.store.GetViolation(id)
	if !ok {
		return types.ConstraintViolation{}, errcode.New(errcode.CodeNotFound, "violation %s not found", id)
	}
	if v.Resolved {
		return types.ConstraintViolation{}, errcode.New(errcode.CodeValidation, "violation %s is already resolved", id)
	}
	at := e.timestamp()
	v.Resolved = true
	v.ResolvedAt = &at
	if err := e.store.PutViolation(v); err != nil {
		return types.ConstraintViolation{}, err
	}
	return v, nil
}

// PendingEditRequests lists the approval queue. Lead only.
func (e *Engine) PendingEditRequests(actor types.Actor) ([]types.EditRequest, error) {
	if err := governance.CheckApproval(actor); err != nil {
		return nil, err
	}
	return e.store.ListPendingEditRequests()
}

// ResolveEditRequest approves or rejects a queued change. Approval applies
// the deferred update or delete in the same transaction that closes the
// request; rejection just closes it.
func (e *Engine) ResolveEditRequest(actor types.Actor, auditID string, approved bool) (types.EditRequest, error) {
	if err := governance.CheckApproval(actor); err != nil {
		return types.EditRequest{}, err
	}
	req, ok := e.store.GetEditRequest(auditID)
	if !ok {
		return types.EditRequest{}, errcode.New(errcode.CodeNotFound, "edit request %s not found", auditID)
	}
	if req.Resolved {
		return types.EditRequest{}, errcode.New(errcode.CodeValidation, "edit request %s is already resolved", auditID)
	}

	at := e.timestamp()
	req.Resolved = true
	req.Approved = &approved
	req.ResolvedBy = actor.Subject
	req.ResolvedAt = &at

	err := e.store.WithTx(func(ops store.Ops) error {
		if approved {
			if err := e.applyEditRequest(ops, req); err != nil {
				return err
			}
		}
		return ops.PutEditRequest(req)
	})
	if err != nil {
		return types.EditRequest{}, err
	}
	return req, nil
}

func (e *Engine) applyEditRequest(ops store.Ops, req types.EditRequest) error {
	d, ok := ops.GetDecision(req.DecisionID)
	if !ok {
		return errcode.New(errcode.CodeNotFound, "decision %s no longer exists", req.DecisionID)
	}

	switch req.Change {
	case types.EditChangeDelete:
		if err := ops.DeleteDecision(req.DecisionID); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", req.DecisionID, "deleted")
	case types.EditChangeUpdate:
		var in UpdateDecisionInput
		if err := json.Unmarshal(req.PatchJSON, &in); err != nil {
			return errcode.New(errcode.CodeValidation, "stored patch is unreadable: %v", err)
		}
		if err := ops.PutDecision(applyUpdate(d, in)); err != nil {
			return err
		}
		return e.appendChange(ops, "decision", req.DecisionID, "updated")
	default:
		return errcode.New(errcode.CodeValidation, "unknown change kind %q", req.Change)
	}
}

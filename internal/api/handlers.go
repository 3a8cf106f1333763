package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/premiselabs/tenet/internal/engine"
	"github.com/premiselabs/tenet/pkg/types"
)

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateDecision(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in engine.CreateDecisionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.Engine.CreateDecision(actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleListDecisions(w http.ResponseWriter, _ *http.Request, _ types.Actor) {
	views, err := h.Engine.ListDecisions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": views})
}

func (h *Handler) handleGetDecision(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	v, err := h.Engine.GetDecision(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleUpdateDecision(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in engine.UpdateDecisionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.Engine.UpdateDecision(actor, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	if !res.Applied {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDeleteDecision(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in struct {
		Justification string `json:"justification"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &in); err != nil {
			writeError(w, err)
			return
		}
	}
	res, err := h.Engine.DeleteDecision(actor, r.PathValue("id"), in.Justification)
	if err != nil {
		writeError(w, err)
		return
	}
	if !res.Deleted {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRetire(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in struct {
		Outcome     types.RetirementOutcome     `json:"outcome"`
		Conclusions types.RetirementConclusions `json:"conclusions"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Engine.Retire(actor, r.PathValue("id"), in.Outcome, in.Conclusions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleGetRetirement(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	rec, err := h.Engine.GetRetirement(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in engine.ReviewInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Engine.Review(actor, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	recs, err := h.Engine.ListReviews(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": recs})
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	ev, err := h.Engine.EvaluateNow(actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evaluation": ev})
}

func (h *Handler) handleBatchEvaluate(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in struct {
		Force bool `json:"force"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &in); err != nil {
			writeError(w, err)
			return
		}
	}
	res, err := h.Engine.BatchEvaluate(r.Context(), in.Force)
	if err != nil {
		// An interrupted batch still evaluated what it got through, and
		// those decisions changed. Callers need the partial counts.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeJSON(w, http.StatusOK, res)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in struct {
		Lock   bool   `json:"lock"`
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.Engine.Lock(actor, r.PathValue("id"), in.Lock, in.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCreateAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in engine.CreateAssumptionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.Engine.CreateAssumption(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleListAssumptions(w http.ResponseWriter, _ *http.Request, _ types.Actor) {
	all, err := h.Engine.ListAssumptions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assumptions": all})
}

func (h *Handler) handleGetAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	a, err := h.Engine.GetAssumption(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpdateAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in engine.UpdateAssumptionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.Engine.UpdateAssumption(r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if err := h.Engine.DeleteAssumption(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleLinkAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if err := h.Engine.LinkAssumption(r.PathValue("id"), r.PathValue("assumptionId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleUnlinkAssumption(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if err := h.Engine.UnlinkAssumption(r.PathValue("id"), r.PathValue("assumptionId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleListDecisionAssumptions(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	all, err := h.Engine.ListAssumptionsForDecision(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assumptions": all})
}

func (h *Handler) handleListAssumptionConflicts(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	resolved, err := resolvedFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	conflicts, err := h.Engine.ListConflicts(types.ConflictAssumptions, resolved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

func (h *Handler) handleDetectAssumptionConflicts(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	created, err := h.Engine.DetectAssumptionConflicts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"new_conflicts": created})
}

func (h *Handler) handleDetectDecisionConflicts(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	created, err := h.Engine.DetectDecisionConflicts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"new_conflicts": created})
}

func (h *Handler) handleListDecisionConflicts(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	conflicts, err := h.Engine.ListOpenConflictsForDecision(r.PathValue("decisionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

func (h *Handler) handleResolveConflict(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in struct {
		Action string `json:"action"`
		Notes  string `json:"notes"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Engine.ResolveConflict(r.PathValue("id"), in.Action, in.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDismissConflict(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if err := h.Engine.DismissConflict(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"dismissed": true})
}

func (h *Handler) handleAddDependency(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in struct {
		FromDecisionID string                   `json:"from_decision_id"`
		ToDecisionID   string                   `json:"to_decision_id"`
		Relation       types.DependencyRelation `json:"relation"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	dep, err := h.Engine.AddDependency(in.FromDecisionID, in.ToDecisionID, in.Relation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *Handler) handleListDependencies(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	deps, err := h.Engine.ListDependencies(r.PathValue("decisionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dependencies": deps})
}

func (h *Handler) handleDeleteDependency(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if err := h.Engine.DeleteDependency(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) handleConstraints(w http.ResponseWriter, _ *http.Request, _ types.Actor) {
	set, hash := h.Engine.Constraints()
	writeJSON(w, http.StatusOK, map[string]any{"constraints": set.Constraints, "version": set.Version, "hash": hash})
}

// handleConstraintsForDecision returns the constraint set scoped to one
// decision. Constraints are organization-wide, so the set is the same for
// every decision; the route only adds an existence check.
func (h *Handler) handleConstraintsForDecision(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	if _, err := h.Engine.GetDecision(r.PathValue("decisionId")); err != nil {
		writeError(w, err)
		return
	}
	set, hash := h.Engine.Constraints()
	writeJSON(w, http.StatusOK, map[string]any{"constraints": set.Constraints, "version": set.Version, "hash": hash})
}

func (h *Handler) handleReportViolation(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	var in struct {
		DecisionID     string `json:"decision_id"`
		ConstraintName string `json:"constraint_name"`
		Reason         string `json:"reason"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.Engine.ReportViolation(in.DecisionID, in.ConstraintName, in.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleListViolations(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	resolved, err := resolvedFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	all, err := h.Engine.ListViolations(r.PathValue("decisionId"), resolved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"violations": all})
}

func (h *Handler) handleResolveViolation(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	v, err := h.Engine.ResolveViolation(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handlePendingApprovals(w http.ResponseWriter, _ *http.Request, actor types.Actor) {
	pending, err := h.Engine.PendingEditRequests(actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending})
}

func (h *Handler) handleResolveEditRequest(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	var in struct {
		Approved bool `json:"approved"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.Engine.ResolveEditRequest(actor, r.PathValue("auditId"), in.Approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleChanges(w http.ResponseWriter, r *http.Request, _ types.Actor) {
	after := int64(0)
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, errInvalidAfterCursor)
			return
		}
		after = parsed
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, errInvalidLimit)
			return
		}
		limit = parsed
	}
	changes, err := h.Engine.ListChangesAfter(after, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

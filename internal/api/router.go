package api

import "net/http"

// NewRouter wires every route. /healthz is the only unauthenticated path.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealthz)

	mux.HandleFunc("POST /v1/decisions", h.authed(h.handleCreateDecision))
	mux.HandleFunc("GET /v1/decisions", h.authed(h.handleListDecisions))
	mux.HandleFunc("POST /v1/decisions/batch-evaluate", h.authed(h.handleBatchEvaluate))
	mux.HandleFunc("GET /v1/decisions/{id}", h.authed(h.handleGetDecision))
	mux.HandleFunc("PATCH /v1/decisions/{id}", h.authed(h.handleUpdateDecision))
	mux.HandleFunc("DELETE /v1/decisions/{id}", h.authed(h.handleDeleteDecision))
	mux.HandleFunc("POST /v1/decisions/{id}/retire", h.authed(h.handleRetire))
	mux.HandleFunc("GET /v1/decisions/{id}/retirement", h.authed(h.handleGetRetirement))
	mux.HandleFunc("POST /v1/decisions/{id}/review", h.authed(h.handleReview))
	mux.HandleFunc("GET /v1/decisions/{id}/reviews", h.authed(h.handleListReviews))
	mux.HandleFunc("POST /v1/decisions/{id}/evaluate", h.authed(h.handleEvaluate))
	mux.HandleFunc("POST /v1/decisions/{id}/lock", h.authed(h.handleLock))
	mux.HandleFunc("GET /v1/decisions/{id}/assumptions", h.authed(h.handleListDecisionAssumptions))
	mux.HandleFunc("PUT /v1/decisions/{id}/assumptions/{assumptionId}", h.authed(h.handleLinkAssumption))
	mux.HandleFunc("DELETE /v1/decisions/{id}/assumptions/{assumptionId}", h.authed(h.handleUnlinkAssumption))

	mux.HandleFunc("POST /v1/assumptions", h.authed(h.handleCreateAssumption))
	mux.HandleFunc("GET /v1/assumptions", h.authed(h.handleListAssumptions))
	mux.HandleFunc("GET /v1/assumptions/{id}", h.authed(h.handleGetAssumption))
	mux.HandleFunc("PATCH /v1/assumptions/{id}", h.authed(h.handleUpdateAssumption))
	mux.HandleFunc("DELETE /v1/assumptions/{id}", h.authed(h.handleDeleteAssumption))

	mux.HandleFunc("GET /v1/assumption-conflicts", h.authed(h.handleListAssumptionConflicts))
	mux.HandleFunc("POST /v1/assumption-conflicts/detect", h.authed(h.handleDetectAssumptionConflicts))
	mux.HandleFunc("POST /v1/assumption-conflicts/{id}/resolve", h.authed(h.handleResolveConflict))

	mux.HandleFunc("GET /v1/decision-conflicts/{decisionId}", h.authed(h.handleListDecisionConflicts))
	mux.HandleFunc("POST /v1/decision-conflicts/detect", h.authed(h.handleDetectDecisionConflicts))
	mux.HandleFunc("POST /v1/decision-conflicts/{id}/resolve", h.authed(h.handleResolveConflict))
	mux.HandleFunc("DELETE /v1/decision-conflicts/{id}", h.authed(h.handleDismissConflict))

	mux.HandleFunc("POST /v1/dependencies", h.authed(h.handleAddDependency))
	mux.HandleFunc("GET /v1/dependencies/{decisionId}", h.authed(h.handleListDependencies))
	mux.HandleFunc("DELETE /v1/dependencies/{id}", h.authed(h.handleDeleteDependency))

	mux.HandleFunc("GET /v1/constraints", h.authed(h.handleConstraints))
	mux.HandleFunc("GET /v1/constraints/{decisionId}", h.authed(h.handleConstraintsForDecision))
	mux.HandleFunc("POST /v1/constraint-violations", h.authed(h.handleReportViolation))
	mux.HandleFunc("GET /v1/constraint-violations/{decisionId}", h.authed(h.handleListViolations))
	mux.HandleFunc("POST /v1/constraint-violations/{id}/resolve", h.authed(h.handleResolveViolation))

	mux.HandleFunc("GET /v1/pending-approvals", h.authed(h.handlePendingApprovals))
	mux.HandleFunc("POST /v1/edit-requests/{auditId}/resolve", h.authed(h.handleResolveEditRequest))

	mux.HandleFunc("GET /v1/changes", h.authed(h.handleChanges))

	return mux
}

// Package store owns durable records for decisions, assumptions,
// dependencies, conflicts, reviews, retirements, edit requests, constraint
// violations, evaluation state, and the change feed. Two implementations
// exist: the in-memory store in this package and the SQLite store in
// sqlstore.
package store

import "github.com/premiselabs/tenet/pkg/types"

// Ops is the full set of read and write operations. Store exposes them
// auto-committed; WithTx exposes them inside one transaction.
type Ops interface {
	PutDecision(d types.Decision) error
	GetDecision(id string) (types.Decision, bool)
	ListDecisions() ([]types.Decision, error)
	DeleteDecision(id string) error

	PutAssumption(a types.Assumption) error
	GetAssumption(id string) (types.Assumption, bool)
	ListAssumptions() ([]types.Assumption, error)
	ListUniversalAssumptions() ([]types.Assumption, error)
	DeleteAssumption(id string) error

	LinkAssumption(decisionID, assumptionID string) error
	UnlinkAssumption(decisionID, assumptionID string) error
	ListAssumptionIDsForDecision(decisionID string) ([]string, error)
	ListDecisionIDsForAssumption(assumptionID string) ([]string, error)

	PutDependency(dep types.Dependency) error
	DeleteDependency(id string) error
	ListDependenciesFrom(decisionID string) ([]types.Dependency, error)

	// InsertConflict persists a new conflict unless an unresolved conflict
	// for the same pair already exists; the bool reports whether a row was
	// written. Dedupe and insert are one step, so overlapping detection
	// runs cannot double-record a pair.
	InsertConflict(c types.Conflict) (bool, error)
	GetConflict(id string) (types.Conflict, bool)
	ListConflicts(kind types.ConflictKind, resolved *bool) ([]types.Conflict, error)
	ListOpenConflictsForEntity(kind types.ConflictKind, entityID string) ([]types.Conflict, error)
	MarkConflictResolved(id, action, notes, resolvedAt string) error
	DeleteConflict(id string) error

	AppendReview(r types.ReviewRecord) error
	ListReviews(decisionID string) ([]types.ReviewRecord, error)

	PutRetirement(r types.RetirementRecord) error
	GetRetirement(decisionID string) (types.RetirementRecord, bool)

	PutEditRequest(e types.EditRequest) error
	GetEditRequest(auditID string) (types.EditRequest, bool)
	ListPendingEditRequests() ([]types.EditRequest, error)

	PutViolation(v types.ConstraintViolation) error
	GetViolation(id string) (types.ConstraintViolation, bool)
	ListViolations(decisionID string, resolved *bool) ([]types.ConstraintViolation, error)

	PutEvalState(s EvalState) error
	GetEvalState(decisionID string) (EvalState, bool)

	AppendChange(c ChangeRecord) error
	ListChangesAfter(seq int64, limit int) ([]ChangeRecord, error)
}

// Store is a durable Ops provider with single-transaction execution.
type Store interface {
	Ops
	WithTx(fn func(Ops) error) error
	Close() error
}

// EvalState is the scheduler's bookkeeping for one decision: what the world
// looked like the last time it was evaluated. Batch evaluation compares the
// current world against this to decide whether recomputation is needed.
type EvalState struct {
	DecisionID      string
	EvaluatedAt     string
	HealthSignal    int
	Lifecycle       types.Lifecycle
	OpenConflicts   int
	DepsFingerprint string
}

// ChangeRecord is one entry in the invalidation feed consumed by
// presentation layers: which entity changed and how. Seq is assigned by the
// store and strictly increases.
type ChangeRecord struct {
	Seq        int64  `json:"seq"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Change     string `json:"change"`
	CreatedAt  string `json:"created_at"`
}

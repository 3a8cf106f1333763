package store

import (
	"database/sql"
	"errors"

	"github.com/premiselabs/tenet/pkg/types"
)

var errNotFound = errors.New("record not found")

// IsNotFound reports whether a store error means the record does not exist.
// Covers both backends: the memory store's sentinel and SQLite's no-rows.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound) || errors.Is(err, sql.ErrNoRows)
}

// Locked delegation: every auto-committed operation takes the store mutex
// and runs against the same core that WithTx exposes.

func (s *InMemoryStore) PutDecision(d types.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutDecision(d)
}

func (s *InMemoryStore) GetDecision(id string) (types.Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetDecision(id)
}

func (s *InMemoryStore) ListDecisions() ([]types.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListDecisions()
}

func (s *InMemoryStore) DeleteDecision(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.DeleteDecision(id)
}

func (s *InMemoryStore) PutAssumption(a types.Assumption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutAssumption(a)
}

func (s *InMemoryStore) GetAssumption(id string) (types.Assumption, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetAssumption(id)
}

func (s *InMemoryStore) ListAssumptions() ([]types.Assumption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListAssumptions()
}

func (s *InMemoryStore) ListUniversalAssumptions() ([]types.Assumption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListUniversalAssumptions()
}

func (s *InMemoryStore) DeleteAssumption(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.DeleteAssumption(id)
}

func (s *InMemoryStore) LinkAssumption(decisionID, assumptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.LinkAssumption(decisionID, assumptionID)
}

func (s *InMemoryStore) UnlinkAssumption(decisionID, assumptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.UnlinkAssumption(decisionID, assumptionID)
}

func (s *InMemoryStore) ListAssumptionIDsForDecision(decisionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListAssumptionIDsForDecision(decisionID)
}

func (s *InMemoryStore) ListDecisionIDsForAssumption(assumptionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListDecisionIDsForAssumption(assumptionID)
}

func (s *InMemoryStore) PutDependency(dep types.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutDependency(dep)
}

func (s *InMemoryStore) DeleteDependency(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.DeleteDependency(id)
}

func (s *InMemoryStore) ListDependenciesFrom(decisionID string) ([]types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListDependenciesFrom(decisionID)
}

func (s *InMemoryStore) InsertConflict(c types.Conflict) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.InsertConflict(c)
}

func (s *InMemoryStore) GetConflict(id string) (types.Conflict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetConflict(id)
}

func (s *InMemoryStore) ListConflicts(kind types.ConflictKind, resolved *bool) ([]types.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListConflicts(kind, resolved)
}

func (s *InMemoryStore) ListOpenConflictsForEntity(kind types.ConflictKind, entityID string) ([]types.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListOpenConflictsForEntity(kind, entityID)
}

func (s *InMemoryStore) MarkConflictResolved(id, action, notes, resolvedAt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.MarkConflictResolved(id, action, notes, resolvedAt)
}

func (s *InMemoryStore) DeleteConflict(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.DeleteConflict(id)
}

func (s *InMemoryStore) AppendReview(r types.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.AppendReview(r)
}

func (s *InMemoryStore) ListReviews(decisionID string) ([]types.ReviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListReviews(decisionID)
}

func (s *InMemoryStore) PutRetirement(r types.RetirementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutRetirement(r)
}

func (s *InMemoryStore) GetRetirement(decisionID string) (types.RetirementRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetRetirement(decisionID)
}

func (s *InMemoryStore) PutEditRequest(e types.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutEditRequest(e)
}

func (s *InMemoryStore) GetEditRequest(auditID string) (types.EditRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetEditRequest(auditID)
}

func (s *InMemoryStore) ListPendingEditRequests() ([]types.EditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListPendingEditRequests()
}

func (s *InMemoryStore) PutViolation(v types.ConstraintViolation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutViolation(v)
}

func (s *InMemoryStore) GetViolation(id string) (types.ConstraintViolation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetViolation(id)
}

func (s *InMemoryStore) ListViolations(decisionID string, resolved *bool) ([]types.ConstraintViolation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListViolations(decisionID, resolved)
}

func (s *InMemoryStore) PutEvalState(state EvalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.PutEvalState(state)
}

func (s *InMemoryStore) GetEvalState(decisionID string) (EvalState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.GetEvalState(decisionID)
}

func (s *InMemoryStore) AppendChange(c ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.AppendChange(c)
}

func (s *InMemoryStore) ListChangesAfter(seq int64, limit int) ([]ChangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.ListChangesAfter(seq, limit)
}

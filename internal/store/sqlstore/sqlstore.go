// Package sqlstore is the SQLite-backed implementation of store.Store,
// using the pure-Go modernc.org/sqlite driver.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// queries implements store.Ops against either *sql.DB or *sql.Tx.
type queries struct {
	q dbtx
}

// Store is the durable SQLite store.
type Store struct {
	queries
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies
// migrations. An empty path is rejected; use store.NewInMemoryStore for
// ephemeral setups.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(db), nil
}

// New wraps an already-open database. Callers own migration.
func New(db *sql.DB) *Store {
	return &Store{queries: queries{q: db}, db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction; any error rolls back every write.
func (s *Store) WithTx(fn func(store.Ops) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(&queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *queries) PutDecision(d types.Decision) error {
	_, err := s.q.Exec(`INSERT INTO decisions(
  decision_id, title, description, lifecycle, health_signal, governance_tier,
  locked_at, lock_reason, locked_by, expiry_date, created_at, last_reviewed_at, created_by
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(decision_id) DO UPDATE SET
  title=excluded.title,
  description=excluded.description,
  lifecycle=excluded.lifecycle,
  health_signal=excluded.health_signal,
  governance_tier=excluded.governance_tier,
  locked_at=excluded.locked_at,
  lock_reason=excluded.lock_reason,
  locked_by=excluded.locked_by,
  expiry_date=excluded.expiry_date,
  last_reviewed_at=excluded.last_reviewed_at`,
		d.ID, d.Title, d.Description, string(d.Lifecycle), d.HealthSignal, string(d.GovernanceTier),
		d.LockedAt, d.LockReason, d.LockedBy, d.ExpiryDate, d.CreatedAt, d.LastReviewedAt, d.CreatedBy,
	)
	return err
}

const decisionColumns = `decision_id, title, description, lifecycle, health_signal, governance_tier,
locked_at, lock_reason, locked_by, expiry_date, created_at, last_reviewed_at, created_by`

func scanDecision(row interface{ Scan(...any) error }) (types.Decision, error) {
	var d types.Decision
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Lifecycle, &d.HealthSignal, &d.GovernanceTier,
		&d.LockedAt, &d.LockReason, &d.LockedBy, &d.ExpiryDate, &d.CreatedAt, &d.LastReviewedAt, &d.CreatedBy)
	return d, err
}

func (s *queries) GetDecision(id string) (types.Decision, bool) {
	row := s.q.QueryRow(`SELECT `+decisionColumns+` FROM decisions WHERE decision_id = ?`, id)
	d, err := scanDecision(row)
	if err != nil {
		return types.Decision{}, false
	}
	return d, true
}

func (s *queries) ListDecisions() ([]types.Decision, error) {
	rows, err := s.q.Query(`SELECT ` + decisionColumns + ` FROM decisions ORDER BY created_at, decision_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *queries) DeleteDecision(id string) error {
	if _, err := s.q.Exec(`DELETE FROM decisions WHERE decision_id = ?`, id); err != nil {
		return err
	}
	// Conflicts reference decisions by bare id, not by foreign key, because
	// the same table also holds assumption pairs.
	_, err := s.q.Exec(`DELETE FROM conflicts WHERE kind = ? AND (entity_a = ? OR entity_b = ?)`,
		string(types.ConflictDecisions), id, id)
	return err
}

func (s *queries) PutAssumption(a types.Assumption) error {
	params, err := json.Marshal(a.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}
	_, err = s.q.Exec(`INSERT INTO assumptions(
  assumption_id, description, status, scope, category, parameters_json, validated_at
) VALUES(?,?,?,?,?,?,?)
ON CONFLICT(assumption_id) DO UPDATE SET
  description=excluded.description,
  status=excluded.status,
  scope=excluded.scope,
  category=excluded.category,
  parameters_json=excluded.parameters_json,
  validated_at=excluded.validated_at`,
		a.ID, a.Description, string(a.Status), string(a.Scope), a.Category, string(params), a.ValidatedAt,
	)
	return err
}

const assumptionColumns = `assumption_id, description, status, scope, category, parameters_json, validated_at`

func scanAssumption(row interface{ Scan(...any) error }) (types.Assumption, error) {
	var a types.Assumption
	var params string
	if err := row.Scan(&a.ID, &a.Description, &a.Status, &a.Scope, &a.Category, &params, &a.ValidatedAt); err != nil {
		return types.Assumption{}, err
	}
	if params != "" && params != "null" {
		if err := json.Unmarshal([]byte(params), &a.Parameters); err != nil {
			return types.Assumption{}, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	return a, nil
}

func (s *queries) GetAssumption(id string) (types.Assumption, bool) {
	row := s.q.QueryRow(`SELECT `+assumptionColumns+` FROM assumptions WHERE assumption_id = ?`, id)
	a, err := scanAssumption(row)
	if err != nil {
		return types.Assumption{}, false
	}
	return a, true
}

func (s *queries) listAssumptionsWhere(where string, args ...any) ([]types.Assumption, error) {
	rows, err := s.q.Query(`SELECT `+assumptionColumns+` FROM assumptions `+where+` ORDER BY assumption_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Assumption{}
	for rows.Next() {
		a, err := scanAssumption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *queries) ListAssumptions() ([]types.Assumption, error) {
	return s.listAssumptionsWhere("")
}

func (s *queries) ListUniversalAssumptions() ([]types.Assumption, error) {
	return s.listAssumptionsWhere(`WHERE scope = ?`, string(types.ScopeUniversal))
}

func (s *queries) DeleteAssumption(id string) error {
	if _, err := s.q.Exec(`DELETE FROM assumptions WHERE assumption_id = ?`, id); err != nil {
		return err
	}
	_, err := s.q.Exec(`DELETE FROM conflicts WHERE kind = ? AND (entity_a = ? OR entity_b = ?)`,
		string(types.ConflictAssumptions), id, id)
	return err
}

func (s *queries) LinkAssumption(decisionID, assumptionID string) error {
	_, err := s.q.Exec(`INSERT INTO decision_assumptions(decision_id, assumption_id) VALUES(?,?)
ON CONFLICT(decision_id, assumption_id) DO NOTHING`, decisionID, assumptionID)
	return err
}

func (s *queries) UnlinkAssumption(decisionID, assumptionID string) error {
	_, err := s.q.Exec(`DELETE FROM decision_assumptions WHERE decision_id = ? AND assumption_id = ?`, decisionID, assumptionID)
	return err
}

func (s *queries) ListAssumptionIDsForDecision(decisionID string) ([]string, error) {
	return s.listIDs(`SELECT assumption_id FROM decision_assumptions WHERE decision_id = ? ORDER BY assumption_id`, decisionID)
}

func (s *queries) ListDecisionIDsForAssumption(assumptionID string) ([]string, error) {
	return s.listIDs(`SELECT decision_id FROM decision_assumptions WHERE assumption_id = ? ORDER BY decision_id`, assumptionID)
}

func (s *queries) listIDs(query string, args ...any) ([]string, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *queries) PutDependency(dep types.Dependency) error {
	_, err := s.q.Exec(`INSERT INTO dependencies(dependency_id, from_decision_id, to_decision_id, relation, created_at)
VALUES(?,?,?,?,?)
ON CONFLICT(dependency_id) DO UPDATE SET relation=excluded.relation`,
		dep.ID, dep.FromDecisionID, dep.ToDecisionID, string(dep.Relation), dep.CreatedAt,
	)
	return err
}

func (s *queries) DeleteDependency(id string) error {
	_, err := s.q.Exec(`DELETE FROM dependencies WHERE dependency_id = ?`, id)
	return err
}

func (s *queries) ListDependenciesFrom(decisionID string) ([]types.Dependency, error) {
	rows, err := s.q.Query(`SELECT dependency_id, from_decision_id, to_decision_id, relation, created_at
FROM dependencies WHERE from_decision_id = ? ORDER BY dependency_id`, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Dependency{}
	for rows.Next() {
		var dep types.Dependency
		if err := rows.Scan(&dep.ID, &dep.FromDecisionID, &dep.ToDecisionID, &dep.Relation, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *queries) InsertConflict(c types.Conflict) (bool, error) {
	// Dedupe and insert are one statement against the partial unique index
	// on open pairs, so concurrent detection runs cannot both land a row.
	res, err := s.q.Exec(`INSERT INTO conflicts(
  conflict_id, kind, entity_a, entity_b, pair_key, conflict_type, confidence,
  explanation, detected_at, resolved, resolution_action, resolution_notes, resolved_at
) VALUES(?,?,?,?,?,?,?,?,?,0,'','',NULL)
ON CONFLICT(pair_key) WHERE resolved = 0 DO NOTHING`,
		c.ID, string(c.Kind), c.EntityA, c.EntityB, c.PairKey(), c.ConflictType, c.Confidence,
		c.Explanation, c.DetectedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const conflictColumns = `conflict_id, kind, entity_a, entity_b, conflict_type, confidence,
explanation, detected_at, resolved, resolution_action, resolution_notes, resolved_at`

func scanConflict(row interface{ Scan(...any) error }) (types.Conflict, error) {
	var c types.Conflict
	var resolved int
	err := row.Scan(&c.ID, &c.Kind, &c.EntityA, &c.EntityB, &c.ConflictType, &c.Confidence,
		&c.Explanation, &c.DetectedAt, &resolved, &c.ResolutionAction, &c.ResolutionNotes, &c.ResolvedAt)
	if err != nil {
		return types.Conflict{}, err
	}
	c.Resolved = resolved != 0
	return c, nil
}

func (s *queries) GetConflict(id string) (types.Conflict, bool) {
	row := s.q.QueryRow(`SELECT `+conflictColumns+` FROM conflicts WHERE conflict_id = ?`, id)
	c, err := scanConflict(row)
	if err != nil {
		return types.Conflict{}, false
	}
	return c, true
}

func (s *queries) listConflicts(query string, args ...any) ([]types.Conflict, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Conflict{}
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *queries) ListConflicts(kind types.ConflictKind, resolved *bool) ([]types.Conflict, error) {
	if resolved == nil {
		return s.listConflicts(`SELECT `+conflictColumns+` FROM conflicts WHERE kind = ? ORDER BY conflict_id`, string(kind))
	}
	return s.listConflicts(`SELECT `+conflictColumns+` FROM conflicts WHERE kind = ? AND resolved = ? ORDER BY conflict_id`,
		string(kind), boolToInt(*resolved))
}

func (s *queries) ListOpenConflictsForEntity(kind types.ConflictKind, entityID string) ([]types.Conflict, error) {
	return s.listConflicts(`SELECT `+conflictColumns+` FROM conflicts
WHERE kind = ? AND resolved = 0 AND (entity_a = ? OR entity_b = ?) ORDER BY conflict_id`,
		string(kind), entityID, entityID)
}

func (s *queries) MarkConflictResolved(id, action, notes, resolvedAt string) error {
	res, err := s.q.Exec(`UPDATE conflicts
SET resolved = 1, resolution_action = ?, resolution_notes = ?, resolved_at = ?
WHERE conflict_id = ?`, action, notes, resolvedAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *queries) DeleteConflict(id string) error {
	res, err := s.q.Exec(`DELETE FROM conflicts WHERE conflict_id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *queries) AppendReview(r types.ReviewRecord) error {
	_, err := s.q.Exec(`INSERT INTO reviews(
  review_id, decision_id, reviewer, comment, review_type, review_outcome,
  deferral_reason, next_review_date, created_at
) VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ID, r.DecisionID, r.Reviewer, r.Comment, r.ReviewType, r.ReviewOutcome,
		r.DeferralReason, r.NextReviewDate, r.CreatedAt,
	)
	return err
}

func (s *queries) ListReviews(decisionID string) ([]types.ReviewRecord, error) {
	rows, err := s.q.Query(`SELECT review_id, decision_id, reviewer, comment, review_type, review_outcome,
deferral_reason, next_review_date, created_at
FROM reviews WHERE decision_id = ? ORDER BY created_at, review_id`, decisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.ReviewRecord{}
	for rows.Next() {
		var r types.ReviewRecord
		if err := rows.Scan(&r.ID, &r.DecisionID, &r.Reviewer, &r.Comment, &r.ReviewType, &r.ReviewOutcome,
			&r.DeferralReason, &r.NextReviewDate, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *queries) PutRetirement(r types.RetirementRecord) error {
	conclusions, err := json.Marshal(r.Conclusions)
	if err != nil {
		return fmt.Errorf("marshal conclusions: %w", err)
	}
	_, err = s.q.Exec(`INSERT INTO retirements(decision_id, outcome, conclusions_json, created_at)
VALUES(?,?,?,?)
ON CONFLICT(decision_id) DO NOTHING`,
		r.DecisionID, string(r.Outcome), string(conclusions), r.CreatedAt,
	)
	return err
}

func (s *queries) GetRetirement(decisionID string) (types.RetirementRecord, bool) {
	var r types.RetirementRecord
	var conclusions string
	row := s.q.QueryRow(`SELECT decision_id, outcome, conclusions_json, created_at FROM retirements WHERE decision_id = ?`, decisionID)
	if err := row.Scan(&r.DecisionID, &r.Outcome, &conclusions, &r.CreatedAt); err != nil {
		return types.RetirementRecord{}, false
	}
	if err := json.Unmarshal([]byte(conclusions), &r.Conclusions); err != nil {
		return types.RetirementRecord{}, false
	}
	return r, true
}

func (s *queries) PutEditRequest(e types.EditRequest) error {
	var approved any
	if e.Approved != nil {
		approved = boolToInt(*e.Approved)
	}
	_, err := s.q.Exec(`INSERT INTO edit_requests(
  audit_id, decision_id, requested_by, justification, governance_tier, change,
  patch_json, requested_at, resolved, approved, resolved_by, resolved_at
) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(audit_id) DO UPDATE SET
  resolved=excluded.resolved,
  approved=excluded.approved,
  resolved_by=excluded.resolved_by,
  resolved_at=excluded.resolved_at`,
		e.AuditID, e.DecisionID, e.RequestedBy, e.Justification, string(e.GovernanceTier), string(e.Change),
		string(e.PatchJSON), e.RequestedAt, boolToInt(e.Resolved), approved, e.ResolvedBy, e.ResolvedAt,
	)
	return err
}

const editRequestColumns = `audit_id, decision_id, requested_by, justification, governance_tier, change,
patch_json, requested_at, resolved, approved, resolved_by, resolved_at`

func scanEditRequest(row interface{ Scan(...any) error }) (types.EditRequest, error) {
	var e types.EditRequest
	var patch string
	var resolved int
	var approved *int
	err := row.Scan(&e.AuditID, &e.DecisionID, &e.RequestedBy, &e.Justification, &e.GovernanceTier, &e.Change,
		&patch, &e.RequestedAt, &resolved, &approved, &e.ResolvedBy, &e.ResolvedAt)
	if err != nil {
		return types.EditRequest{}, err
	}
	e.PatchJSON = []byte(patch)
	e.Resolved = resolved != 0
	if approved != nil {
		v := *approved != 0
		e.Approved = &v
	}
	return e, nil
}

func (s *queries) GetEditRequest(auditID string) (types.EditRequest, bool) {
	row := s.q.QueryRow(`SELECT `+editRequestColumns+` FROM edit_requests WHERE audit_id = ?`, auditID)
	e, err := scanEditRequest(row)
	if err != nil {
		return types.EditRequest{}, false
	}
	return e, true
}

func (s *queries) ListPendingEditRequests() ([]types.EditRequest, error) {
	rows, err := s.q.Query(`SELECT ` + editRequestColumns + ` FROM edit_requests WHERE resolved = 0 ORDER BY requested_at, audit_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.EditRequest{}
	for rows.Next() {
		e, err := scanEditRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *queries) PutViolation(v types.ConstraintViolation) error {
	_, err := s.q.Exec(`INSERT INTO constraint_violations(
  violation_id, decision_id, constraint_name, reason, detected_at, resolved, resolved_at
) VALUES(?,?,?,?,?,?,?)
ON CONFLICT(violation_id) DO UPDATE SET
  resolved=excluded.resolved,
  resolved_at=excluded.resolved_at`,
		v.ID, v.DecisionID, v.ConstraintName, v.Reason, v.DetectedAt, boolToInt(v.Resolved), v.ResolvedAt,
	)
	return err
}

func (s *queries) GetViolation(id string) (types.ConstraintViolation, bool) {
	var v types.ConstraintViolation
	var resolved int
	row := s.q.QueryRow(`SELECT violation_id, decision_id, constraint_name, reason, detected_at, resolved, resolved_at
FROM constraint_violations WHERE violation_id = ?`, id)
	if err := row.Scan(&v.ID, &v.DecisionID, &v.ConstraintName, &v.Reason, &v.DetectedAt, &resolved, &v.ResolvedAt); err != nil {
		return types.ConstraintViolation{}, false
	}
	v.Resolved = resolved != 0
	return v, true
}

func (s *queries) ListViolations(decisionID string, resolved *bool) ([]types.ConstraintViolation, error) {
	query := `SELECT violation_id, decision_id, constraint_name, reason, detected_at, resolved, resolved_at
FROM constraint_violations WHERE decision_id = ?`
	args := []any{decisionID}
	if resolved != nil {
		query += ` AND resolved = ?`
		args = append(args, boolToInt(*resolved))
	}
	query += ` ORDER BY violation_id`

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.ConstraintViolation{}
	for rows.Next() {
		var v types.ConstraintViolation
		var resolvedInt int
		if err := rows.Scan(&v.ID, &v.DecisionID, &v.ConstraintName, &v.Reason, &v.DetectedAt, &resolvedInt, &v.ResolvedAt); err != nil {
			return nil, err
		}
		v.Resolved = resolvedInt != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *queries) PutEvalState(state store.EvalState) error {
	_, err := s.q.Exec(`INSERT INTO eval_states(
  decision_id, evaluated_at, health_signal, lifecycle, open_conflicts, deps_fingerprint
) VALUES(?,?,?,?,?,?)
ON CONFLICT(decision_id) DO UPDATE SET
  evaluated_at=excluded.evaluated_at,
  health_signal=excluded.health_signal,
  lifecycle=excluded.lifecycle,
  open_conflicts=excluded.open_conflicts,
  deps_fingerprint=excluded.deps_fingerprint`,
		state.DecisionID, state.EvaluatedAt, state.HealthSignal, string(state.Lifecycle), state.OpenConflicts, state.DepsFingerprint,
	)
	return err
}

func (s *queries) GetEvalState(decisionID string) (store.EvalState, bool) {
	var state store.EvalState
	row := s.q.QueryRow(`SELECT decision_id, evaluated_at, health_signal, lifecycle, open_conflicts, deps_fingerprint
FROM eval_states WHERE decision_id = ?`, decisionID)
	if err := row.Scan(&state.DecisionID, &state.EvaluatedAt, &state.HealthSignal, &state.Lifecycle, &state.OpenConflicts, &state.DepsFingerprint); err != nil {
		return store.EvalState{}, false
	}
	return state, true
}

func (s *queries) AppendChange(c store.ChangeRecord) error {
	_, err := s.q.Exec(`INSERT INTO changes(entity_kind, entity_id, change, created_at) VALUES(?,?,?,?)`,
		c.EntityKind, c.EntityID, c.Change, c.CreatedAt)
	return err
}

func (s *queries) ListChangesAfter(seq int64, limit int) ([]store.ChangeRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.q.Query(`SELECT seq, entity_kind, entity_id, change, created_at
FROM changes WHERE seq > ? ORDER BY seq LIMIT ?`, seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.ChangeRecord{}
	for rows.Next() {
		var c store.ChangeRecord
		if err := rows.Scan(&c.Seq, &c.EntityKind, &c.EntityID, &c.Change, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

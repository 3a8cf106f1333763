// Package conflict owns the conflict registry: oracle invocation, idempotent
// ingestion of findings, resolution, and false-positive dismissal.
package conflict

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

// DefaultOracleTimeout bounds one oracle invocation including retries.
const DefaultOracleTimeout = 10 * time.Second

const oracleMaxRetries = 2

// Registry persists oracle findings and manages their resolution.
type Registry struct {
	store    store.Store
	detector Detector
	timeout  time.Duration
	now      func() time.Time
}

// NewRegistry wires a registry over a store and a detector. A zero timeout
// falls back to DefaultOracleTimeout.
func NewRegistry(st store.Store, det Detector, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Registry{store: st, detector: det, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the registry clock for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// DetectAssumptionConflicts runs the oracle over all assumptions and ingests
// any new findings. Oracle outages are soft failures: the error is logged and
// zero new conflicts are reported, with nothing written.
func (r *Registry) DetectAssumptionConflicts(ctx context.Context) (int, error) {
	assumptions, err := r.store.ListAssumptions()
	if err != nil {
		return 0, err
	}
	findings, err := r.callOracle(ctx, func(ctx context.Context) ([]Finding, error) {
		return r.detector.DetectAssumptionConflicts(ctx, assumptions)
	})
	if err != nil {
		log.Printf("conflict: assumption detection oracle unavailable: %v", err)
		return 0, nil
	}
	return r.ingest(types.ConflictAssumptions, findings)
}

// DetectDecisionConflicts runs the oracle over all non-terminal decisions
// and ingests any new findings, with the same soft-failure behavior.
func (r *Registry) DetectDecisionConflicts(ctx context.Context) (int, error) {
	all, err := r.store.ListDecisions()
	if err != nil {
		return 0, err
	}
	active := all[:0]
	for _, d := range all {
		if d.Lifecycle != types.LifecycleRetired && d.Lifecycle != types.LifecycleInvalidated {
			active = append(active, d)
		}
	}
	findings, err := r.callOracle(ctx, func(ctx context.Context) ([]Finding, error) {
		return r.detector.DetectDecisionConflicts(ctx, active)
	})
	if err != nil {
		log.Printf("conflict: decision detection oracle unavailable: %v", err)
		return 0, nil
	}
	return r.ingest(types.ConflictDecisions, findings)
}

func (r *Registry) callOracle(ctx context.Context, call func(context.Context) ([]Finding, error)) ([]Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var findings []Finding
	op := func() error {
		var err error
		findings, err = call(ctx)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), oracleMaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, errcode.New(errcode.CodeOracleUnavailable, "detection oracle: %v", err)
	}
	return findings, nil
}

// ingest writes findings in one transaction. Open pairs already on record
// are skipped; the returned count is newly created conflicts only.
func (r *Registry) ingest(kind types.ConflictKind, findings []Finding) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}
	detectedAt := r.now().Format(time.RFC3339)
	created := 0
	err := r.store.WithTx(func(ops store.Ops) error {
		for _, f := range findings {
			if f.EntityA == "" || f.EntityB == "" || f.EntityA == f.EntityB {
				continue
			}
			if kind == types.ConflictDecisions && !types.ValidDecisionConflictType(f.Type) {
				log.Printf("conflict: dropping finding with unknown type %q", f.Type)
				continue
			}
			a, b := f.EntityA, f.EntityB
			if b < a {
				a, b = b, a
			}
			// External detectors are not trusted to score in range.
			confidence := f.Confidence
			if confidence < 0 {
				confidence = 0
			} else if confidence > 1 {
				confidence = 1
			}
			inserted, err := ops.InsertConflict(types.Conflict{
				ID:           "cfl-" + uuid.NewString(),
				Kind:         kind,
				EntityA:      a,
				EntityB:      b,
				ConflictType: f.Type,
				Confidence:   confidence,
				Explanation:  f.Explanation,
				DetectedAt:   detectedAt,
			})
			if err != nil {
				return err
			}
			if inserted {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Resolve marks a conflict settled and returns the decision ids that should
// be re-evaluated as a result. For assumption conflicts that is every
// decision referencing either assumption, with universal assumptions
// touching every decision. For decision conflicts it is both parties.
func (r *Registry) Resolve(conflictID, action, notes string) ([]string, error) {
	c, ok := r.store.GetConflict(conflictID)
	if !ok {
		return nil, errcode.New(errcode.CodeConflictNotFound, "conflict %s not found", conflictID)
	}
	if c.Resolved {
		return nil, errcode.New(errcode.CodeValidation, "conflict %s is already resolved", conflictID)
	}
	switch c.Kind {
	case types.ConflictDecisions:
		if !types.ValidResolutionAction(types.ResolutionAction(action)) {
			return nil, errcode.New(errcode.CodeValidation, "unknown resolution action %q", action)
		}
	default:
		if action == "" {
			return nil, errcode.New(errcode.CodeValidation, "resolution action is required")
		}
	}

	if err := r.store.MarkConflictResolved(conflictID, action, notes, r.now().Format(time.RFC3339)); err != nil {
		if store.IsNotFound(err) {
			return nil, errcode.New(errcode.CodeConflictNotFound, "conflict %s not found", conflictID)
		}
		return nil, err
	}
	return r.affectedDecisions(c)
}

func (r *Registry) affectedDecisions(c types.Conflict) ([]string, error) {
	if c.Kind == types.ConflictDecisions {
		return []string{c.EntityA, c.EntityB}, nil
	}

	seen := map[string]bool{}
	for _, asmID := range []string{c.EntityA, c.EntityB} {
		asm, ok := r.store.GetAssumption(asmID)
		if ok && asm.Scope == types.ScopeUniversal {
			all, err := r.store.ListDecisions()
			if err != nil {
				return nil, err
			}
			for _, d := range all {
				seen[d.ID] = true
			}
			continue
		}
		ids, err := r.store.ListDecisionIDsForAssumption(asmID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// DismissFalsePositive hard-deletes the conflict record. No side effects on
// the entities it named.
func (r *Registry) DismissFalsePositive(conflictID string) error {
	if err := r.store.DeleteConflict(conflictID); err != nil {
		if store.IsNotFound(err) {
			return errcode.New(errcode.CodeConflictNotFound, "conflict %s not found", conflictID)
		}
		return err
	}
	return nil
}

// OpenCountForDecision counts the open conflicts that weigh on a decision's
// lifecycle: its own decision conflicts plus assumption conflicts touching
// any linked or universal assumption.
func OpenCountForDecision(ops store.Ops, decisionID string) (int, error) {
	direct, err := ops.ListOpenConflictsForEntity(types.ConflictDecisions, decisionID)
	if err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	for _, c := range direct {
		seen[c.ID] = true
	}

	asmIDs, err := ops.ListAssumptionIDsForDecision(decisionID)
	if err != nil {
		return 0, err
	}
	universal, err := ops.ListUniversalAssumptions()
	if err != nil {
		return 0, err
	}
	for _, u := range universal {
		asmIDs = append(asmIDs, u.ID)
	}

	counted := map[string]bool{}
	for _, asmID := range asmIDs {
		if counted[asmID] {
			continue
		}
		counted[asmID] = true
		open, err := ops.ListOpenConflictsForEntity(types.ConflictAssumptions, asmID)
		if err != nil {
			return 0, err
		}
		for _, c := range open {
			seen[c.ID] = true
		}
	}
	return len(seen), nil
}

// OpenCountForDecision is the registry-bound variant of the package
// function.
func (r *Registry) OpenCountForDecision(decisionID string) (int, error) {
	return OpenCountForDecision(r.store, decisionID)
}

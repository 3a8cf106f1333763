// Package engine ties the store, health calculator, lifecycle machine,
// conflict registry, and governance gate into the operations the API
// exposes. Every operation is one atomic unit of work against the store.
package engine

import (
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/premiselabs/tenet/internal/conflict"
	"github.com/premiselabs/tenet/internal/constraint"
	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/health"
	"github.com/premiselabs/tenet/internal/lifecycle"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

// DefaultStaleAfter is how long an evaluation stays fresh before batch
// evaluation recomputes it.
const DefaultStaleAfter = 24 * time.Hour

// Engine executes decision operations.
type Engine struct {
	store       store.Store
	conflicts   *conflict.Registry
	constraints constraint.Loaded
	staleAfter  time.Duration
	now         func() time.Time
}

// New wires an engine. A zero staleAfter falls back to DefaultStaleAfter.
func New(st store.Store, reg *conflict.Registry, constraints constraint.Loaded, staleAfter time.Duration) *Engine {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Engine{
		store:       st,
		conflicts:   reg,
		constraints: constraints,
		staleAfter:  staleAfter,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the engine clock for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) timestamp() string {
	return e.now().Format(time.RFC3339)
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// DecisionView is a decision as readers see it: the stored record plus the
// derived lifecycle, conflict pressure, and health metrics.
type DecisionView struct {
	types.Decision
	EffectiveLifecycle types.Lifecycle `json:"effective_lifecycle"`
	OpenConflicts      int             `json:"open_conflicts"`
	Metrics            health.Metrics  `json:"metrics"`
}

func (e *Engine) view(d types.Decision) (DecisionView, error) {
	open, err := conflict.OpenCountForDecision(e.store, d.ID)
	if err != nil {
		return DecisionView{}, err
	}
	metrics := health.Compute(snapshot(d), e.now())
	return DecisionView{
		Decision:           d,
		EffectiveLifecycle: lifecycle.Effective(d.Lifecycle, d.HealthSignal, open),
		OpenConflicts:      open,
		Metrics:            metrics,
	}, nil
}

func snapshot(d types.Decision) health.Snapshot {
	return health.Snapshot{
		HealthSignal:   d.HealthSignal,
		Lifecycle:      d.Lifecycle,
		LastReviewedAt: parseTime(d.LastReviewedAt),
	}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (e *Engine) getDecision(id string) (types.Decision, error) {
	d, ok := e.store.GetDecision(id)
	if !ok {
		return types.Decision{}, errcode.New(errcode.CodeNotFound, "decision %s not found", id)
	}
	return d, nil
}

// Evaluation is the outcome of one recompute.
type Evaluation struct {
	HealthChange     int             `json:"health_change"`
	LifecycleChanged bool            `json:"lifecycle_changed"`
	NewHealth        int             `json:"new_health"`
	NewLifecycle     types.Lifecycle `json:"new_lifecycle"`
}

// evaluate recomputes one decision atomically: health correction when
// drifting, derived lifecycle, evaluation bookkeeping, and a change-feed
// entry when anything moved.
func (e *Engine) evaluate(d types.Decision) (Evaluation, error) {
	now := e.now()
	open, err := conflict.OpenCountForDecision(e.store, d.ID)
	if err != nil {
		return Evaluation{}, err
	}
	fingerprint, err := e.depsFingerprint(d.ID)
	if err != nil {
		return Evaluation{}, err
	}

	metrics := health.Compute(snapshot(d), now)
	newHealth := d.HealthSignal
	if metrics.Drifting {
		// Pull the signal toward observed freshness instead of snapping to
		// it, so one stale read does not erase the recorded judgment.
		newHealth = health.Clamp(int(math.Round(0.7*float64(d.HealthSignal) + 0.3*float64(metrics.Decay))))
	}

	effective := lifecycle.Effective(d.Lifecycle, newHealth, open)
	result := Evaluation{
		HealthChange:     newHealth - d.HealthSignal,
		LifecycleChanged: effective != d.Lifecycle,
		NewHealth:        newHealth,
		NewLifecycle:     effective,
	}

	d.HealthSignal = newHealth
	if !lifecycle.Terminal(d.Lifecycle) {
		d.Lifecycle = effective
	}

	err = e.store.WithTx(func(ops store.Ops) error {
		if err := ops.PutDecision(d); err != nil {
			return err
		}
		if err := ops.PutEvalState(store.EvalState{
			DecisionID:      d.ID,
			EvaluatedAt:     now.Format(time.RFC3339),
			HealthSignal:    newHealth,
			Lifecycle:       effective,
			OpenConflicts:   open,
			DepsFingerprint: fingerprint,
		}); err != nil {
			return err
		}
		if result.HealthChange != 0 || result.LifecycleChanged {
			return ops.AppendChange(store.ChangeRecord{
				EntityKind: "decision",
				EntityID:   d.ID,
				Change:     "evaluated",
				CreatedAt:  now.Format(time.RFC3339),
			})
		}
		return nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	return result, nil
}

// reevaluate recomputes a set of decisions after a conflict resolution.
// Individual failures are logged, never propagated.
func (e *Engine) reevaluate(ids []string) int {
	done := 0
	for _, id := range ids {
		d, ok := e.store.GetDecision(id)
		if !ok || d.Lifecycle == types.LifecycleRetired {
			continue
		}
		if _, err := e.evaluate(d); err != nil {
			log.Printf("engine: re-evaluation of %s failed: %v", id, err)
			continue
		}
		done++
	}
	return done
}

func (e *Engine) appendChange(ops store.Ops, kind, id, change string) error {
	return ops.AppendChange(store.ChangeRecord{
		EntityKind: kind,
		EntityID:   id,
		Change:     change,
		CreatedAt:  e.timestamp(),
	})
}

// ListChangesAfter reads the invalidation feed past the given cursor.
func (e *Engine) ListChangesAfter(seq int64, limit int) ([]store.ChangeRecord, error) {
	return e.store.ListChangesAfter(seq, limit)
}

package engine

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/premiselabs/tenet/internal/governance"
	"github.com/premiselabs/tenet/internal/lifecycle"
	"github.com/premiselabs/tenet/pkg/types"
)

// EvaluateNow recomputes one decision immediately, bypassing the
// needs-evaluation check. Rejected for retired decisions and for locked
// decisions without elevated privilege.
func (e *Engine) EvaluateNow(actor types.Actor, id string) (Evaluation, error) {
	d, err := e.getDecision(id)
	if err != nil {
		return Evaluation{}, err
	}
	if err := lifecycle.CheckEvaluable(d); err != nil {
		return Evaluation{}, err
	}
	if err := governance.CheckMutation(d, actor); err != nil {
		return Evaluation{}, err
	}
	return e.evaluate(d)
}

// BatchResult is the outcome of one batch evaluation pass.
type BatchResult struct {
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// BatchEvaluate recomputes every decision that needs it: stale bookkeeping,
// changed conflict pressure, a dependency that moved, or force. Cancellation
// is cooperative between decisions; each recompute is atomic, so stopping
// mid-batch only discards not-yet-started work. Per-decision failures are
// logged and counted, never fatal to the batch.
func (e *Engine) BatchEvaluate(ctx context.Context, force bool) (BatchResult, error) {
	all, err := e.store.ListDecisions()
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, d := range all {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if d.Lifecycle == types.LifecycleRetired {
			result.Skipped++
			continue
		}

		needed, err := e.needsEvaluation(d, force)
		if err != nil {
			log.Printf("engine: staleness check for %s failed: %v", d.ID, err)
			result.Failed++
			continue
		}
		if !needed {
			result.Skipped++
			continue
		}
		if _, err := e.evaluate(d); err != nil {
			log.Printf("engine: evaluation of %s failed: %v", d.ID, err)
			result.Failed++
			continue
		}
		result.Evaluated++
	}
	return result, nil
}

func (e *Engine) needsEvaluation(d types.Decision, force bool) (bool, error) {
	if force {
		return true, nil
	}
	state, ok := e.store.GetEvalState(d.ID)
	if !ok {
		return true, nil
	}
	evaluatedAt := parseTime(state.EvaluatedAt)
	if evaluatedAt.IsZero() || e.now().Sub(evaluatedAt) >= e.staleAfter {
		return true, nil
	}

	open, err := e.conflicts.OpenCountForDecision(d.ID)
	if err != nil {
		return false, err
	}
	if open != state.OpenConflicts {
		return true, nil
	}

	fingerprint, err := e.depsFingerprint(d.ID)
	if err != nil {
		return false, err
	}
	return fingerprint != state.DepsFingerprint, nil
}

// depsFingerprint condenses the lifecycles of every decision this one
// depends on into a comparable string. When a dependency target moves, the
// fingerprint moves with it.
func (e *Engine) depsFingerprint(id string) (string, error) {
	deps, err := e.store.ListDependenciesFrom(id)
	if err != nil {
		return "", err
	}
	if len(deps) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		lc := types.Lifecycle("missing")
		if target, ok := e.store.GetDecision(dep.ToDecisionID); ok {
			lc = target.Lifecycle
		}
		parts = append(parts, dep.ToDecisionID+"="+string(lc))
	}
	sort.Strings(parts)
	return strings.Join(parts, ","), nil
}

// StaleAfter exposes the staleness window, mostly for tests.
func (e *Engine) StaleAfter() time.Duration {
	return e.staleAfter
}

package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/premiselabs/tenet/internal/errcode"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/pkg/types"
)

func seedOpposingAssumptions(t *testing.T, st store.Store) {
	t.Helper()
	a := types.Assumption{
		ID: "asm-a", Description: "ad spend grows", Status: types.AssumptionValid,
		Scope: types.ScopeDecisionSpecific, Category: "budget",
		Parameters: map[string]string{"timeframe": "2026-Q4", "direction": "increase"},
	}
	b := types.Assumption{
		ID: "asm-b", Description: "ad spend shrinks", Status: types.AssumptionValid,
		Scope: types.ScopeDecisionSpecific, Category: "budget",
		Parameters: map[string]string{"timeframe": "2026-Q4", "direction": "decrease"},
	}
	if err := st.PutAssumption(a); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.PutAssumption(b); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestDetectAssumptionConflictsIsIdempotent(t *testing.T) {
	st := store.NewInMemoryStore()
	seedOpposingAssumptions(t, st)
	r := NewRegistry(st, HeuristicDetector{}, time.Second)

	created, err := r.DetectAssumptionConflicts(context.Background())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 new conflict, got %d", created)
	}

	created, err = r.DetectAssumptionConflicts(context.Background())
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if created != 0 {
		t.Fatalf("open pair re-recorded: %d new", created)
	}
}

type failingDetector struct{}

func (failingDetector) DetectAssumptionConflicts(context.Context, []types.Assumption) ([]Finding, error) {
	return nil, errors.New("oracle down")
}

func (failingDetector) DetectDecisionConflicts(context.Context, []types.Decision) ([]Finding, error) {
	return nil, errors.New("oracle down")
}

func TestDetectionFailsSoft(t *testing.T) {
	st := store.NewInMemoryStore()
	seedOpposingAssumptions(t, st)
	r := NewRegistry(st, failingDetector{}, 50*time.Millisecond)

	created, err := r.DetectAssumptionConflicts(context.Background())
	if err != nil {
		t.Fatalf("oracle failure must not surface: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected zero conflicts on outage, got %d", created)
	}
	open, _ := st.ListConflicts(types.ConflictAssumptions, nil)
	if len(open) != 0 {
		t.Fatalf("partial writes on outage: %+v", open)
	}
}

type unclampedDetector struct{}

func (unclampedDetector) DetectAssumptionConflicts(context.Context, []types.Assumption) ([]Finding, error) {
	return []Finding{
		{EntityA: "asm-a", EntityB: "asm-b", Type: types.ConflictContradictory, Confidence: 1.7},
		{EntityA: "asm-a", EntityB: "asm-c", Type: types.ConflictContradictory, Confidence: -0.3},
	}, nil
}

func (unclampedDetector) DetectDecisionConflicts(context.Context, []types.Decision) ([]Finding, error) {
	return nil, nil
}

func TestIngestClampsConfidence(t *testing.T) {
	st := store.NewInMemoryStore()
	seedOpposingAssumptions(t, st)
	r := NewRegistry(st, unclampedDetector{}, time.Second)

	created, err := r.DetectAssumptionConflicts(context.Background())
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 new conflicts, got %d", created)
	}

	conflicts, _ := st.ListConflicts(types.ConflictAssumptions, nil)
	for _, c := range conflicts {
		if c.Confidence < 0 || c.Confidence > 1 {
			t.Fatalf("confidence %v stored out of range on %s", c.Confidence, c.ID)
		}
	}
}

func TestResolveAssumptionConflictReturnsReferencingDecisions(t *testing.T) {
	st := store.NewInMemoryStore()
	seedOpposingAssumptions(t, st)
	_ = st.PutDecision(types.Decision{ID: "dec-1", Lifecycle: types.LifecycleStable, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"})
	_ = st.PutDecision(types.Decision{ID: "dec-2", Lifecycle: types.LifecycleStable, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"})
	_ = st.LinkAssumption("dec-1", "asm-a")

	r := NewRegistry(st, HeuristicDetector{}, time.Second)
	if _, err := r.DetectAssumptionConflicts(context.Background()); err != nil {
		t.Fatalf("detect: %v", err)
	}
	conflicts, _ := st.ListConflicts(types.ConflictAssumptions, nil)
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", conflicts)
	}

	affected, err := r.Resolve(conflicts[0].ID, "UPDATED_A", "revalidated the budget claim")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(affected) != 1 || affected[0] != "dec-1" {
		t.Fatalf("expected dec-1 affected, got %v", affected)
	}

	if _, err := r.Resolve(conflicts[0].ID, "UPDATED_A", ""); !errcode.Is(err, errcode.CodeValidation) {
		t.Fatalf("double resolution should be rejected, got %v", err)
	}
}

func TestResolveUniversalAssumptionTouchesAllDecisions(t *testing.T) {
	st := store.NewInMemoryStore()
	_ = st.PutAssumption(types.Assumption{ID: "asm-u", Status: types.AssumptionValid, Scope: types.ScopeUniversal, Category: "market"})
	_ = st.PutAssumption(types.Assumption{ID: "asm-x", Status: types.AssumptionValid, Scope: types.ScopeDecisionSpecific, Category: "market"})
	_ = st.PutDecision(types.Decision{ID: "dec-1", Lifecycle: types.LifecycleStable, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"})
	_ = st.PutDecision(types.Decision{ID: "dec-2", Lifecycle: types.LifecycleStable, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"})
	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-1", Kind: types.ConflictAssumptions, EntityA: "asm-u", EntityB: "asm-x", ConflictType: types.ConflictContradictory, DetectedAt: "2026-01-01T00:00:00Z"})

	r := NewRegistry(st, HeuristicDetector{}, time.Second)
	affected, err := r.Resolve("cfl-1", "REVALIDATED", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("universal assumption should touch every decision, got %v", affected)
	}
}

func TestResolveDecisionConflictValidatesAction(t *testing.T) {
	st := store.NewInMemoryStore()
	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-1", Kind: types.ConflictDecisions, EntityA: "dec-a", EntityB: "dec-b", ConflictType: types.ConflictMutuallyExclusive, DetectedAt: "2026-01-01T00:00:00Z"})
	r := NewRegistry(st, HeuristicDetector{}, time.Second)

	if _, err := r.Resolve("cfl-1", "SHRUG", ""); !errcode.Is(err, errcode.CodeValidation) {
		t.Fatalf("unknown action accepted: %v", err)
	}
	affected, err := r.Resolve("cfl-1", string(types.ResolvePrioritizeA), "a carries the quarter")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(affected) != 2 || affected[0] != "dec-a" || affected[1] != "dec-b" {
		t.Fatalf("both parties should be re-evaluated, got %v", affected)
	}
}

func TestDismissFalsePositive(t *testing.T) {
	st := store.NewInMemoryStore()
	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-1", Kind: types.ConflictDecisions, EntityA: "dec-a", EntityB: "dec-b", ConflictType: types.ConflictContradictory, DetectedAt: "2026-01-01T00:00:00Z"})
	r := NewRegistry(st, HeuristicDetector{}, time.Second)

	if err := r.DismissFalsePositive("cfl-1"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if _, ok := st.GetConflict("cfl-1"); ok {
		t.Fatalf("dismissed conflict still on record")
	}
	if err := r.DismissFalsePositive("cfl-1"); !errcode.Is(err, errcode.CodeConflictNotFound) {
		t.Fatalf("expected CONFLICT_NOT_FOUND, got %v", err)
	}
}

func TestOpenCountForDecision(t *testing.T) {
	st := store.NewInMemoryStore()
	_ = st.PutDecision(types.Decision{ID: "dec-1", Lifecycle: types.LifecycleStable, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"})
	_ = st.PutAssumption(types.Assumption{ID: "asm-l", Status: types.AssumptionValid, Scope: types.ScopeDecisionSpecific})
	_ = st.PutAssumption(types.Assumption{ID: "asm-u", Status: types.AssumptionValid, Scope: types.ScopeUniversal})
	_ = st.LinkAssumption("dec-1", "asm-l")

	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-d", Kind: types.ConflictDecisions, EntityA: "dec-1", EntityB: "dec-2", ConflictType: types.ConflictContradictory, DetectedAt: "2026-01-01T00:00:00Z"})
	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-l", Kind: types.ConflictAssumptions, EntityA: "asm-l", EntityB: "asm-z", ConflictType: types.ConflictContradictory, DetectedAt: "2026-01-01T00:00:00Z"})
	_, _ = st.InsertConflict(types.Conflict{ID: "cfl-u", Kind: types.ConflictAssumptions, EntityA: "asm-u", EntityB: "asm-q", ConflictType: types.ConflictContradictory, DetectedAt: "2026-01-01T00:00:00Z"})

	n, err := OpenCountForDecision(st, "dec-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 open conflicts, got %d", n)
	}

	_ = st.MarkConflictResolved("cfl-u", "REVALIDATED", "", "2026-01-02T00:00:00Z")
	n, _ = OpenCountForDecision(st, "dec-1")
	if n != 2 {
		t.Fatalf("resolved conflict still counted: %d", n)
	}
}

func TestHeuristicDecisionDetection(t *testing.T) {
	decisions := []types.Decision{
		{ID: "dec-1", Title: "Expand the berlin office"},
		{ID: "dec-2", Title: "Cut the berlin office budget"},
		{ID: "dec-3", Title: "Adopt managed queues"},
	}
	findings, err := HeuristicDetector{}.DetectDecisionConflicts(context.Background(), decisions)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %+v", findings)
	}
	f := findings[0]
	if f.EntityA != "dec-1" || f.EntityB != "dec-2" || f.Type != types.ConflictContradictory {
		t.Fatalf("wrong finding: %+v", f)
	}
}

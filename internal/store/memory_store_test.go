package store

import (
	"testing"

	"github.com/premiselabs/tenet/pkg/types"
)

func TestDecisionRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	d := types.Decision{ID: "dec-1", Title: "Adopt managed queues", Lifecycle: types.LifecycleStable, HealthSignal: 90, GovernanceTier: types.TierStandard, CreatedAt: "2026-01-01T00:00:00Z"}
	if err := s.PutDecision(d); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := s.GetDecision("dec-1")
	if !ok || got.Title != d.Title {
		t.Fatalf("round trip failed: %+v ok=%v", got, ok)
	}
	list, err := s.ListDecisions()
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one decision, got %d err=%v", len(list), err)
	}
}

func TestInsertConflictDedupesOpenPairs(t *testing.T) {
	s := NewInMemoryStore()
	first := types.Conflict{ID: "cfl-1", Kind: types.ConflictAssumptions, EntityA: "asm-a", EntityB: "asm-b", ConflictType: types.ConflictContradictory, Confidence: 0.8, DetectedAt: "2026-01-01T00:00:00Z"}
	inserted, err := s.InsertConflict(first)
	if err != nil || !inserted {
		t.Fatalf("first insert should land: %v inserted=%v", err, inserted)
	}

	// Same pair in reverse order must be treated as a duplicate.
	dup := types.Conflict{ID: "cfl-2", Kind: types.ConflictAssumptions, EntityA: "asm-b", EntityB: "asm-a", ConflictType: types.ConflictContradictory, Confidence: 0.9, DetectedAt: "2026-01-02T00:00:00Z"}
	inserted, err = s.InsertConflict(dup)
	if err != nil {
		t.Fatalf("dup insert: %v", err)
	}
	if inserted {
		t.Fatalf("open pair must not be recorded twice")
	}

	if err := s.MarkConflictResolved("cfl-1", "UPDATED_A", "revalidated", "2026-01-03T00:00:00Z"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Once resolved, the pair may conflict again.
	inserted, err = s.InsertConflict(dup)
	if err != nil || !inserted {
		t.Fatalf("post-resolution insert should land: %v inserted=%v", err, inserted)
	}
}

func TestMarkConflictResolved(t *testing.T) {
	s := NewInMemoryStore()
	cfl := types.Conflict{ID: "cfl-1", Kind: types.ConflictDecisions, EntityA: "dec-a", EntityB: "dec-b", ConflictType: types.ConflictMutuallyExclusive, DetectedAt: "2026-01-01T00:00:00Z"}
	if _, err := s.InsertConflict(cfl); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkConflictResolved("cfl-1", string(types.ResolvePrioritizeA), "a wins", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, ok := s.GetConflict("cfl-1")
	if !ok || !got.Resolved || got.ResolutionAction != string(types.ResolvePrioritizeA) {
		t.Fatalf("resolution not persisted: %+v", got)
	}
	open, err := s.ListOpenConflictsForEntity(types.ConflictDecisions, "dec-a")
	if err != nil || len(open) != 0 {
		t.Fatalf("resolved conflict still listed open: %v err=%v", open, err)
	}
	if err := s.MarkConflictResolved("missing", "x", "", "2026-01-02T00:00:00Z"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteDecisionCascades(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.PutDecision(types.Decision{ID: "dec-1", CreatedAt: "2026-01-01T00:00:00Z"})
	_ = s.PutDecision(types.Decision{ID: "dec-2", CreatedAt: "2026-01-01T00:00:00Z"})
	_ = s.PutAssumption(types.Assumption{ID: "asm-1", Scope: types.ScopeDecisionSpecific})
	_ = s.LinkAssumption("dec-1", "asm-1")
	_ = s.PutDependency(types.Dependency{ID: "dep-1", FromDecisionID: "dec-1", ToDecisionID: "dec-2", Relation: types.RelationDependsOn})
	_, _ = s.InsertConflict(types.Conflict{ID: "cfl-1", Kind: types.ConflictDecisions, EntityA: "dec-1", EntityB: "dec-2", ConflictType: types.ConflictContradictory})
	_ = s.PutEvalState(EvalState{DecisionID: "dec-1", EvaluatedAt: "2026-01-01T00:00:00Z"})

	if err := s.DeleteDecision("dec-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.GetDecision("dec-1"); ok {
		t.Fatalf("decision survived delete")
	}
	ids, _ := s.ListAssumptionIDsForDecision("dec-1")
	if len(ids) != 0 {
		t.Fatalf("links survived delete")
	}
	deps, _ := s.ListDependenciesFrom("dec-1")
	if len(deps) != 0 {
		t.Fatalf("dependencies survived delete")
	}
	open, _ := s.ListOpenConflictsForEntity(types.ConflictDecisions, "dec-2")
	if len(open) != 0 {
		t.Fatalf("decision conflicts survived delete")
	}
	if _, ok := s.GetEvalState("dec-1"); ok {
		t.Fatalf("eval state survived delete")
	}
}

func TestUniversalAssumptionsQuery(t *testing.T) {
	s := NewInMemoryStore()
	_ = s.PutAssumption(types.Assumption{ID: "asm-u", Scope: types.ScopeUniversal})
	_ = s.PutAssumption(types.Assumption{ID: "asm-d", Scope: types.ScopeDecisionSpecific})
	universal, err := s.ListUniversalAssumptions()
	if err != nil || len(universal) != 1 || universal[0].ID != "asm-u" {
		t.Fatalf("universal query wrong: %+v err=%v", universal, err)
	}
}

func TestChangeFeedSequencing(t *testing.T) {
	s := NewInMemoryStore()
	for _, id := range []string{"dec-1", "dec-2", "dec-3"} {
		if err := s.AppendChange(ChangeRecord{EntityKind: "decision", EntityID: id, Change: "evaluated", CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	recs, err := s.ListChangesAfter(0, 0)
	if err != nil || len(recs) != 3 {
		t.Fatalf("expected 3 changes, got %d err=%v", len(recs), err)
	}
	for i, rec := range recs {
		if rec.Seq != int64(i+1) {
			t.Fatalf("seq out of order: %+v", recs)
		}
	}
	tail, _ := s.ListChangesAfter(2, 0)
	if len(tail) != 1 || tail[0].EntityID != "dec-3" {
		t.Fatalf("after-cursor read wrong: %+v", tail)
	}
}

func TestWithTxSharesState(t *testing.T) {
	s := NewInMemoryStore()
	err := s.WithTx(func(ops Ops) error {
		if err := ops.PutDecision(types.Decision{ID: "dec-1", CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
			return err
		}
		return ops.AppendChange(ChangeRecord{EntityKind: "decision", EntityID: "dec-1", Change: "created", CreatedAt: "2026-01-01T00:00:00Z"})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if _, ok := s.GetDecision("dec-1"); !ok {
		t.Fatalf("tx write not visible")
	}
}

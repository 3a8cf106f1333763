package store

import (
	"sort"
	"sync"

	"github.com/premiselabs/tenet/pkg/types"
)

// InMemoryStore keeps every record in maps behind one mutex. It backs tests
// and dev-mode servers; the SQLite store is the durable implementation.
type InMemoryStore struct {
	mu   sync.Mutex
	core memCore
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{core: memCore{
		decisions:    make(map[string]types.Decision),
		assumptions:  make(map[string]types.Assumption),
		links:        make(map[string]map[string]bool),
		dependencies: make(map[string]types.Dependency),
		conflicts:    make(map[string]types.Conflict),
		openPairs:    make(map[string]string),
		reviews:      make(map[string][]types.ReviewRecord),
		retirements:  make(map[string]types.RetirementRecord),
		editRequests: make(map[string]types.EditRequest),
		violations:   make(map[string]types.ConstraintViolation),
		evalStates:   make(map[string]EvalState),
	}}
}

// WithTx runs fn under the store lock. The in-memory store cannot roll
// back, matching its test-only role; SQLite provides real transactions.
func (s *InMemoryStore) WithTx(fn func(Ops) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.core)
}

func (s *InMemoryStore) Close() error { return nil }

type memCore struct {
	decisions    map[string]types.Decision
	assumptions  map[string]types.Assumption
	links        map[string]map[string]bool
	dependencies map[string]types.Dependency
	conflicts    map[string]types.Conflict
	openPairs    map[string]string
	reviews      map[string][]types.ReviewRecord
	retirements  map[string]types.RetirementRecord
	editRequests map[string]types.EditRequest
	violations   map[string]types.ConstraintViolation
	evalStates   map[string]EvalState
	changes      []ChangeRecord
	changeSeq    int64
}

func (c *memCore) PutDecision(d types.Decision) error {
	c.decisions[d.ID] = d
	return nil
}

func (c *memCore) GetDecision(id string) (types.Decision, bool) {
	d, ok := c.decisions[id]
	return d, ok
}

func (c *memCore) ListDecisions() ([]types.Decision, error) {
	out := make([]types.Decision, 0, len(c.decisions))
	for _, d := range c.decisions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *memCore) DeleteDecision(id string) error {
	delete(c.decisions, id)
	delete(c.links, id)
	delete(c.reviews, id)
	delete(c.retirements, id)
	delete(c.evalStates, id)
	for depID, dep := range c.dependencies {
		if dep.FromDecisionID == id || dep.ToDecisionID == id {
			delete(c.dependencies, depID)
		}
	}
	for vID, v := range c.violations {
		if v.DecisionID == id {
			delete(c.violations, vID)
		}
	}
	for aID, e := range c.editRequests {
		if e.DecisionID == id {
			delete(c.editRequests, aID)
		}
	}
	for cID, cf := range c.conflicts {
		if cf.Kind == types.ConflictDecisions && (cf.EntityA == id || cf.EntityB == id) {
			delete(c.openPairs, cf.PairKey())
			delete(c.conflicts, cID)
		}
	}
	return nil
}

func (c *memCore) PutAssumption(a types.Assumption) error {
	c.assumptions[a.ID] = a
	return nil
}

func (c *memCore) GetAssumption(id string) (types.Assumption, bool) {
	a, ok := c.assumptions[id]
	return a, ok
}

func (c *memCore) ListAssumptions() ([]types.Assumption, error) {
	out := make([]types.Assumption, 0, len(c.assumptions))
	for _, a := range c.assumptions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) ListUniversalAssumptions() ([]types.Assumption, error) {
	out := []types.Assumption{}
	for _, a := range c.assumptions {
		if a.Scope == types.ScopeUniversal {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) DeleteAssumption(id string) error {
	delete(c.assumptions, id)
	for _, set := range c.links {
		delete(set, id)
	}
	for cID, cf := range c.conflicts {
		if cf.Kind == types.ConflictAssumptions && (cf.EntityA == id || cf.EntityB == id) {
			delete(c.openPairs, cf.PairKey())
			delete(c.conflicts, cID)
		}
	}
	return nil
}

func (c *memCore) LinkAssumption(decisionID, assumptionID string) error {
	set, ok := c.links[decisionID]
	if !ok {
		set = make(map[string]bool)
		c.links[decisionID] = set
	}
	set[assumptionID] = true
	return nil
}

func (c *memCore) UnlinkAssumption(decisionID, assumptionID string) error {
	if set, ok := c.links[decisionID]; ok {
		delete(set, assumptionID)
	}
	return nil
}

func (c *memCore) ListAssumptionIDsForDecision(decisionID string) ([]string, error) {
	out := []string{}
	for id := range c.links[decisionID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (c *memCore) ListDecisionIDsForAssumption(assumptionID string) ([]string, error) {
	out := []string{}
	for decisionID, set := range c.links {
		if set[assumptionID] {
			out = append(out, decisionID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *memCore) PutDependency(dep types.Dependency) error {
	c.dependencies[dep.ID] = dep
	return nil
}

func (c *memCore) DeleteDependency(id string) error {
	delete(c.dependencies, id)
	return nil
}

func (c *memCore) ListDependenciesFrom(decisionID string) ([]types.Dependency, error) {
	out := []types.Dependency{}
	for _, dep := range c.dependencies {
		if dep.FromDecisionID == decisionID {
			out = append(out, dep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) InsertConflict(cf types.Conflict) (bool, error) {
	if _, open := c.openPairs[cf.PairKey()]; open {
		return false, nil
	}
	c.conflicts[cf.ID] = cf
	c.openPairs[cf.PairKey()] = cf.ID
	return true, nil
}

func (c *memCore) GetConflict(id string) (types.Conflict, bool) {
	cf, ok := c.conflicts[id]
	return cf, ok
}

func (c *memCore) ListConflicts(kind types.ConflictKind, resolved *bool) ([]types.Conflict, error) {
	out := []types.Conflict{}
	for _, cf := range c.conflicts {
		if cf.Kind != kind {
			continue
		}
		if resolved != nil && cf.Resolved != *resolved {
			continue
		}
		out = append(out, cf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) ListOpenConflictsForEntity(kind types.ConflictKind, entityID string) ([]types.Conflict, error) {
	out := []types.Conflict{}
	for _, cf := range c.conflicts {
		if cf.Kind != kind || cf.Resolved {
			continue
		}
		if cf.EntityA == entityID || cf.EntityB == entityID {
			out = append(out, cf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) MarkConflictResolved(id, action, notes, resolvedAt string) error {
	cf, ok := c.conflicts[id]
	if !ok {
		return errNotFound
	}
	delete(c.openPairs, cf.PairKey())
	cf.Resolved = true
	cf.ResolutionAction = action
	cf.ResolutionNotes = notes
	cf.ResolvedAt = &resolvedAt
	c.conflicts[id] = cf
	return nil
}

func (c *memCore) DeleteConflict(id string) error {
	cf, ok := c.conflicts[id]
	if !ok {
		return errNotFound
	}
	if !cf.Resolved {
		delete(c.openPairs, cf.PairKey())
	}
	delete(c.conflicts, id)
	return nil
}

func (c *memCore) AppendReview(r types.ReviewRecord) error {
	c.reviews[r.DecisionID] = append(c.reviews[r.DecisionID], r)
	return nil
}

func (c *memCore) ListReviews(decisionID string) ([]types.ReviewRecord, error) {
	out := make([]types.ReviewRecord, len(c.reviews[decisionID]))
	copy(out, c.reviews[decisionID])
	return out, nil
}

func (c *memCore) PutRetirement(r types.RetirementRecord) error {
	c.retirements[r.DecisionID] = r
	return nil
}

func (c *memCore) GetRetirement(decisionID string) (types.RetirementRecord, bool) {
	r, ok := c.retirements[decisionID]
	return r, ok
}

func (c *memCore) PutEditRequest(e types.EditRequest) error {
	c.editRequests[e.AuditID] = e
	return nil
}

func (c *memCore) GetEditRequest(auditID string) (types.EditRequest, bool) {
	e, ok := c.editRequests[auditID]
	return e, ok
}

func (c *memCore) ListPendingEditRequests() ([]types.EditRequest, error) {
	out := []types.EditRequest{}
	for _, e := range c.editRequests {
		if !e.Resolved {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt != out[j].RequestedAt {
			return out[i].RequestedAt < out[j].RequestedAt
		}
		return out[i].AuditID < out[j].AuditID
	})
	return out, nil
}

func (c *memCore) PutViolation(v types.ConstraintViolation) error {
	c.violations[v.ID] = v
	return nil
}

func (c *memCore) GetViolation(id string) (types.ConstraintViolation, bool) {
	v, ok := c.violations[id]
	return v, ok
}

func (c *memCore) ListViolations(decisionID string, resolved *bool) ([]types.ConstraintViolation, error) {
	out := []types.ConstraintViolation{}
	for _, v := range c.violations {
		if v.DecisionID != decisionID {
			continue
		}
		if resolved != nil && v.Resolved != *resolved {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCore) PutEvalState(s EvalState) error {
	c.evalStates[s.DecisionID] = s
	return nil
}

func (c *memCore) GetEvalState(decisionID string) (EvalState, bool) {
	s, ok := c.evalStates[decisionID]
	return s, ok
}

func (c *memCore) AppendChange(rec ChangeRecord) error {
	c.changeSeq++
	rec.Seq = c.changeSeq
	c.changes = append(c.changes, rec)
	return nil
}

func (c *memCore) ListChangesAfter(seq int64, limit int) ([]ChangeRecord, error) {
	out := []ChangeRecord{}
	for _, rec := range c.changes {
		if rec.Seq <= seq {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

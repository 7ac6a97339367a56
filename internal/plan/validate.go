package plan

import (
	"fmt"

	"github.com/kbforge/kbforge/internal/domain"
)

// Validate checks the three plan invariants: every dependency id exists
// in the plan, task ids are unique, and the dependency relation is
// acyclic. It reports the first violation found as a PlanValidationError.
func Validate(p *domain.ExecutionPlan) error {
	seen := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if seen[t.ID] {
			return &domain.PlanValidationError{Reason: fmt.Sprintf("duplicate task id %q", t.ID)}
		}
		seen[t.ID] = true
	}

	byID := p.ByID()
	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return &domain.PlanValidationError{Reason: fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep)}
			}
		}
	}

	if err := detectCycle(p, byID); err != nil {
		return err
	}
	return nil
}

// detectCycle runs Kahn's algorithm: repeatedly remove tasks with
// in-degree zero. If tasks remain when no more can be removed, those
// tasks form at least one cycle.
func detectCycle(p *domain.ExecutionPlan, byID map[string]domain.AtomicTask) error {
	inDegree := make(map[string]int, len(p.Tasks))
	dependents := make(map[string][]string, len(p.Tasks))

	for _, t := range p.Tasks {
		if _, ok := inDegree[t.ID]; !ok {
			inDegree[t.ID] = 0
		}
		for _, dep := range t.Dependencies {
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	removed := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		removed++
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if removed != len(p.Tasks) {
		return &domain.PlanValidationError{Reason: "dependency graph contains a cycle"}
	}
	return nil
}

package executor

import (
	"sort"
	"time"

	"github.com/kbforge/kbforge/internal/domain"
)

// Preview summarizes a plan without running any handler: the waves a real
// Run would dispatch (each wave is every task that becomes ready at the
// same dependency depth), a per-type count, and the plan's own
// LLM-call and duration estimates.
type Preview struct {
	Waves             [][]domain.AtomicTask
	CountsByType      map[domain.TaskType]int
	ExpectedLLMCalls  int
	EstimatedDuration time.Duration
}

// BuildPreview computes the wave decomposition of plan. It is side-effect
// free: no task handler runs and no file is touched.
func BuildPreview(plan *domain.ExecutionPlan) Preview {
	byID := plan.ByID()
	remaining := make(map[string]int, len(plan.Tasks))
	dependents := make(map[string][]string, len(plan.Tasks))
	for _, t := range plan.Tasks {
		remaining[t.ID] = len(t.Dependencies)
		for _, dep := range t.Dependencies {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	counts := make(map[domain.TaskType]int)
	var wave []string
	for _, t := range plan.Tasks {
		counts[t.Type]++
		if remaining[t.ID] == 0 {
			wave = append(wave, t.ID)
		}
	}

	var waves [][]domain.AtomicTask
	settled := make(map[string]bool, len(plan.Tasks))
	for len(wave) > 0 {
		sort.Strings(wave)
		tasks := make([]domain.AtomicTask, 0, len(wave))
		var next []string
		for _, id := range wave {
			tasks = append(tasks, byID[id])
			settled[id] = true
		}
		for _, id := range wave {
			for _, depID := range dependents[id] {
				remaining[depID]--
				if remaining[depID] == 0 {
					next = append(next, depID)
				}
			}
		}
		waves = append(waves, tasks)
		wave = next
	}

	return Preview{
		Waves:             waves,
		CountsByType:      counts,
		ExpectedLLMCalls:  plan.ExpectedLLMCalls,
		EstimatedDuration: plan.EstimatedDuration,
	}
}

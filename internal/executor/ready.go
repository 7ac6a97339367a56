package executor

import "github.com/kbforge/kbforge/internal/domain"

// readyQueue orders the ready set: higher priority first, and within a
// priority class the cheapest task first so short filesystem-bound tasks
// (cleanup, verification) drain ahead of slow LLM calls of the same
// class. Ties break on task ID for deterministic dispatch order across
// runs of the same plan.
type readyQueue []domain.AtomicTask

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	if q[i].EstimatedDuration != q[j].EstimatedDuration {
		return q[i].EstimatedDuration < q[j].EstimatedDuration
	}
	return q[i].ID < q[j].ID
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x interface{}) {
	*q = append(*q, x.(domain.AtomicTask))
}

func (q *readyQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

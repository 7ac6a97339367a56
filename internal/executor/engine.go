package executor

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kbforge/kbforge/internal/domain"
)

// Handler executes one AtomicTask. nonCompliant is only meaningful on a
// nil error and marks a best-effort result the reviewer loop could not
// fully validate (domain.ReviewerNonCompliant). A handler must be
// idempotent: re-running it for the same task after a prior partial run
// must converge to the same output.
type Handler func(ctx context.Context, task domain.AtomicTask) (nonCompliant bool, err error)

// Engine dispatches a validated ExecutionPlan's tasks in dependency and
// priority order under a bounded concurrency limit.
type Engine struct {
	handlers             map[domain.TaskType]Handler
	concurrency          int64
	continueOnFileErrors bool
	logger               *zap.Logger
	progress             chan<- ProgressEvent
}

// New builds an Engine. concurrency must be >= 1.
func New(handlers map[domain.TaskType]Handler, concurrency int, continueOnFileErrors bool, logger *zap.Logger, progress chan<- ProgressEvent) *Engine {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		handlers:             handlers,
		concurrency:          int64(concurrency),
		continueOnFileErrors: continueOnFileErrors,
		logger:               logger,
		progress:             progress,
	}
}

type taskResult struct {
	task         domain.AtomicTask
	nonCompliant bool
	err          error
}

// Run dispatches every task in plan to completion (or to a propagated
// skip, or to a hard abort if continueOnFileErrors is false and a task
// fails). The returned ExecutionResults is populated regardless of
// whether Run also returns an error.
func (e *Engine) Run(ctx context.Context, plan *domain.ExecutionPlan) (*domain.ExecutionResults, error) {
	byID := plan.ByID()
	remaining := make(map[string]int, len(plan.Tasks))
	dependents := make(map[string][]string, len(plan.Tasks))
	for _, t := range plan.Tasks {
		remaining[t.ID] = len(t.Dependencies)
		for _, dep := range t.Dependencies {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	results := &domain.ExecutionResults{}
	done := make(map[string]bool, len(plan.Tasks))

	var ready readyQueue
	for _, t := range plan.Tasks {
		if remaining[t.ID] == 0 {
			heap.Push(&ready, t)
		}
	}

	sem := semaphore.NewWeighted(e.concurrency)
	resultsCh := make(chan taskResult)
	start := time.Now()

	var inFlight int
	var abortErr error

	for len(ready) > 0 || inFlight > 0 {
		for len(ready) > 0 && sem.TryAcquire(1) {
			t := heap.Pop(&ready).(domain.AtomicTask)
			inFlight++
			e.emit(ProgressEvent{Phase: ProgressTaskStarted, Task: t, ReadyCount: ready.Len(), RunningCount: inFlight, CompletedCount: len(done), TotalCount: len(plan.Tasks)})
			go e.runTask(ctx, t, resultsCh)
		}

		if inFlight == 0 {
			// Every remaining ready task failed TryAcquire, which cannot
			// happen with concurrency >= 1; guard against a stuck loop.
			break
		}

		res := <-resultsCh
		sem.Release(1)
		inFlight--
		done[res.task.ID] = true

		e.record(results, res)
		e.emit(ProgressEvent{Phase: ProgressTaskFinished, Task: res.task, ReadyCount: ready.Len(), RunningCount: inFlight, CompletedCount: len(done), TotalCount: len(plan.Tasks), Err: res.err})

		if res.err != nil && !e.continueOnFileErrors {
			abortErr = res.err
			break
		}

		// Truncation deliberately writes no artifact and omits the file
		// from its parent's view; the parent knowledge file still builds
		// from the surviving children. Only the verification task for
		// the missing artifact is meaningless and gets skipped.
		var trunc *domain.TruncationDetected
		truncated := res.err != nil && errors.As(res.err, &trunc)

		if res.err != nil && !truncated {
			e.propagateSkip(res.task.ID, dependents, byID, done, results)
			continue
		}

		for _, depID := range dependents[res.task.ID] {
			dep := byID[depID]
			if truncated && (dep.Type == domain.TaskVerifyCacheFreshness || dep.Type == domain.TaskVerifyKBFreshness) {
				if !done[depID] {
					done[depID] = true
					results.Skipped = append(results.Skipped, domain.TaskOutcome{TaskID: dep.ID, Type: dep.Type, Target: dep.Target, Reason: "target_truncated"})
					e.propagateSkip(depID, dependents, byID, done, results)
				}
				continue
			}
			remaining[depID]--
			if remaining[depID] == 0 {
				heap.Push(&ready, byID[depID])
			}
		}
	}

	// Drain any tasks already dispatched before a hard abort so their
	// goroutines don't block forever sending on resultsCh.
	for inFlight > 0 {
		res := <-resultsCh
		inFlight--
		done[res.task.ID] = true
		e.record(results, res)
	}

	results.Duration = time.Since(start)
	if abortErr != nil {
		return results, abortErr
	}
	if len(done) != len(plan.Tasks) {
		return results, errors.New("executor: plan did not fully drain; a dependency was never satisfied")
	}
	return results, nil
}

func (e *Engine) runTask(ctx context.Context, t domain.AtomicTask, out chan<- taskResult) {
	handler, ok := e.handlers[t.Type]
	if !ok {
		out <- taskResult{task: t, err: &domain.TaskIOError{TaskID: t.ID, Err: errUnknownTaskType(t.Type)}}
		return
	}
	nonCompliant, err := handler(ctx, t)
	out <- taskResult{task: t, nonCompliant: nonCompliant, err: err}
}

// propagateSkip marks every transitive dependent of a failed task as
// skipped, since none of them can ever become ready. Traversal order is
// sorted for deterministic logging; it has no effect on dispatch, which
// is already over for these tasks.
func (e *Engine) propagateSkip(failedID string, dependents map[string][]string, byID map[string]domain.AtomicTask, done map[string]bool, results *domain.ExecutionResults) {
	queue := append([]string(nil), dependents[failedID]...)
	sort.Strings(queue)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if done[id] {
			continue
		}
		done[id] = true
		t := byID[id]
		results.Skipped = append(results.Skipped, domain.TaskOutcome{TaskID: t.ID, Type: t.Type, Target: t.Target, Reason: "dependency_failed"})
		queue = append(queue, dependents[id]...)
	}
}

func (e *Engine) record(results *domain.ExecutionResults, res taskResult) {
	outcome := domain.TaskOutcome{TaskID: res.task.ID, Type: res.task.Type, Target: res.task.Target, Err: res.err}
	switch {
	case res.err != nil:
		outcome.Reason = res.err.Error()
		results.Failed = append(results.Failed, outcome)
	case res.nonCompliant:
		outcome.Reason = "reviewer_non_compliant"
		results.NonCompliant = append(results.NonCompliant, outcome)
		e.countArtifact(results, res.task.Type)
	default:
		outcome.Reason = "completed"
		results.Completed = append(results.Completed, outcome)
		e.countArtifact(results, res.task.Type)
	}
	if res.task.Type == domain.TaskAnalyzeFileLLM || res.task.Type == domain.TaskCreateDirectoryKB {
		results.LLMCallsMade++
	}
}

func (e *Engine) countArtifact(results *domain.ExecutionResults, t domain.TaskType) {
	switch t {
	case domain.TaskAnalyzeFileLLM:
		results.FilesProcessed++
	case domain.TaskCreateDirectoryKB:
		results.DirsProcessed++
	case domain.TaskDeleteOrphanedFile, domain.TaskDeleteOrphanedDirectory:
		results.FilesDeleted++
	}
}

package executor

import "github.com/kbforge/kbforge/internal/domain"

// ProgressPhase marks where in a task's lifecycle a ProgressEvent was
// emitted.
type ProgressPhase string

const (
	ProgressTaskStarted  ProgressPhase = "task_started"
	ProgressTaskFinished ProgressPhase = "task_finished"
)

// ProgressEvent reports a scheduling snapshot for a UI to render. Emitted
// on every task start and finish; never blocks the engine if nobody is
// listening.
type ProgressEvent struct {
	Phase          ProgressPhase
	Task           domain.AtomicTask
	ReadyCount     int
	RunningCount   int
	CompletedCount int
	TotalCount     int
	Err            error
}

func (e *Engine) emit(ev ProgressEvent) {
	if e.progress == nil {
		return
	}
	select {
	case e.progress <- ev:
	default:
	}
}

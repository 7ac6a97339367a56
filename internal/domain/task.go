package domain

import "time"

// TaskType enumerates every kind of atomic, schedulable unit of work.
type TaskType string

const (
	TaskAnalyzeFileLLM          TaskType = "analyze_file_llm"
	TaskSkipFileCached          TaskType = "skip_file_cached"
	TaskCreateDirectoryKB       TaskType = "create_directory_kb"
	TaskSkipDirectoryFresh      TaskType = "skip_directory_fresh"
	TaskDeleteOrphanedFile      TaskType = "delete_orphaned_file"
	TaskDeleteOrphanedDirectory TaskType = "delete_orphaned_directory"
	TaskCreateCacheStructure    TaskType = "create_cache_structure"
	TaskVerifyCacheFreshness    TaskType = "verify_cache_freshness"
	TaskVerifyKBFreshness       TaskType = "verify_kb_freshness"
)

// Priority classes assigned by the Plan Generator's five phases. Higher
// values run first within the ready set.
const (
	PriorityCleanup        = 100
	PriorityCacheStructure = 90
	PriorityFileTask       = 50
	PriorityDirectoryTask  = 30
	PriorityVerification   = 10
)

// AtomicTask is the smallest unit of schedulable work in an ExecutionPlan.
type AtomicTask struct {
	ID                string
	Type              TaskType
	Target            string
	Dependencies      []string
	Metadata          map[string]string
	Priority          int
	EstimatedDuration time.Duration
	IsSafeToDelete    bool
}

// ExecutionPlan is an ordered, validated DAG of AtomicTasks.
//
// Invariants: every task.Dependencies[i] names a task present in Tasks;
// the dependency relation is acyclic; task IDs are unique.
type ExecutionPlan struct {
	Tasks             []AtomicTask
	ExpectedLLMCalls  int
	EstimatedDuration time.Duration
}

// ByID returns a lookup map from task ID to task.
func (p *ExecutionPlan) ByID() map[string]AtomicTask {
	m := make(map[string]AtomicTask, len(p.Tasks))
	for _, t := range p.Tasks {
		m[t.ID] = t
	}
	return m
}

// Package executor runs a validated domain.ExecutionPlan. It tracks each
// task's dependency count, releases a task into the ready set the moment
// its last dependency finishes, and dispatches the ready set in
// priority-desc, duration-asc order under a bounded concurrency limit.
// Task handlers are supplied by the caller and must be idempotent: the
// same task running twice (after a crash-and-resume, say) must leave the
// output tree in the same state either way.
package executor

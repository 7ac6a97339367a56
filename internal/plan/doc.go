// Package plan converts a DecisionReport into a validated DAG of
// AtomicTasks: cleanup, cache-structure preparation, file analysis,
// directory knowledge-file generation, and freshness verification, each
// phase wired with the explicit dependencies the executor relies on for
// its ordering guarantees.
package plan

package domain

import "fmt"

// ConfigurationError wraps an invalid or missing configuration. Raising it
// aborts the run before discovery starts.
type ConfigurationError struct {
	Handler string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s.%s: %s", e.Handler, e.Field, e.Reason)
}

// DiscoveryError wraps a filesystem access failure encountered while
// walking the source tree. The walker skips only the affected directory.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error at %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// DecisionError indicates the Rebuild Decision Engine reached a state the
// spec says must be impossible by construction. Its presence signals a bug
// in the engine, not bad input, and aborts the run.
type DecisionError struct {
	Reason string
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("decision engine invariant violated: %s", e.Reason)
}

// PlanValidationError reports a dependency cycle, a missing dependency id,
// or a task id collision. Aborts the run with exit code 1.
type PlanValidationError struct {
	Reason string
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("plan validation failed: %s", e.Reason)
}

// TaskIOError wraps a filesystem or transport failure during a single
// task's execution. Subject to continue_on_file_errors.
type TaskIOError struct {
	TaskID string
	Err    error
}

func (e *TaskIOError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *TaskIOError) Unwrap() error { return e.Err }

// LLMTransportError is a transient failure talking to the LLM, retried by
// the adapter before surfacing as a TaskIOError.
type LLMTransportError struct {
	Attempt int
	Err     error
}

func (e *LLMTransportError) Error() string {
	return fmt.Sprintf("llm transport error (attempt %d): %v", e.Attempt, e.Err)
}

func (e *LLMTransportError) Unwrap() error { return e.Err }

// TruncationDetected signals that the LLM's output was incomplete even
// after the configured continuation attempts. No artifact is written for
// the offending task, and the file is omitted from its parent directory's
// context so it cannot poison the parent's knowledge file.
type TruncationDetected struct {
	Target   string
	Attempts int
}

func (e *TruncationDetected) Error() string {
	return fmt.Sprintf("truncation detected for %s after %d continuation attempt(s)", e.Target, e.Attempts)
}

// ReviewerNonCompliant signals the reviewer loop exhausted its iterations
// without reaching COMPLIANT. The best-effort artifact is still cached.
type ReviewerNonCompliant struct {
	Target     string
	Iterations int
}

func (e *ReviewerNonCompliant) Error() string {
	return fmt.Sprintf("reviewer non-compliant for %s after %d iteration(s)", e.Target, e.Iterations)
}

// Package domain holds the shared data model for the knowledge-base rebuild
// engine: path types, file/directory contexts, rebuild and deletion
// decisions, the atomic task DAG, and execution results. Every other
// internal package depends on domain; domain depends on nothing internal.
//
// Values here are immutable once constructed. State transitions produce new
// values rather than mutating in place. No value here embeds a mutex; the
// executor confines its mutable results to its own dispatch loop.
package domain

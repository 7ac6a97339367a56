// Package decision implements the Rebuild Decision Engine: the single
// source of truth for which files and directories must be rebuilt on a
// given run. It runs four phases — file-level decisions, directory-level
// cascade, orphan deletion, and ancestor cascade propagation — and never
// reads file bodies, only filesystem metadata: the source mtimes captured
// in the discovered DirectoryContext tree and stat calls on cached
// artifacts and knowledge files.
package decision

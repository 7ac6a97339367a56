// Package cache reads and writes per-file analysis artifacts with an
// embedded metadata header, and answers the two freshness questions the
// rest of the engine needs: is a file's cached analysis still fresh
// against its source, and is a directory's knowledge file stale against
// its constituents. Writes are atomic (temp file + rename); the metadata
// header is always stripped before its content is handed back to a
// caller.
package cache

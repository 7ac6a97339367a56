// Package pathmap implements the pure functions that translate between a
// source path, its cached analysis artifact path, and its directory's
// knowledge file path. Nothing here touches the filesystem; callers
// combine these with os/io to actually read or write.
package pathmap

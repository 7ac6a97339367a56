// Package discovery walks a handler's source tree, applying the
// configured exclusion sets and file-size limit, and produces an
// immutable domain.DirectoryContext tree. It never reads file contents
// and never calls the LLM; it records only filesystem metadata (size,
// modification time).
package discovery

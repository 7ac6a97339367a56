package domain

import "time"

// FileStatus is the lifecycle stage of a FileContext.
type FileStatus string

const (
	FileDiscovered FileStatus = "discovered"
	FileCached     FileStatus = "cached"
	FileAnalyzed   FileStatus = "analyzed"
	FileSkipped    FileStatus = "skipped"
	FileFailed     FileStatus = "failed"
)

// FileContext describes a single discovered source file. Immutable: every
// state transition (Discovery -> Cached -> Analyzed, etc.) returns a new
// FileContext via the With* helpers rather than mutating the receiver.
type FileContext struct {
	Path          SourcePath
	Size          int64
	ModTime       time.Time
	Status        FileStatus
	CachedContent string
	Err           error
}

// WithStatus returns a copy of f with Status replaced.
func (f FileContext) WithStatus(s FileStatus) FileContext {
	f.Status = s
	return f
}

// WithError returns a copy of f marked Failed with the given error.
func (f FileContext) WithError(err error) FileContext {
	f.Status = FileFailed
	f.Err = err
	return f
}

// WithCachedContent returns a copy of f marked Cached with the given body.
func (f FileContext) WithCachedContent(body string) FileContext {
	f.Status = FileCached
	f.CachedContent = body
	return f
}

// DirStatus is the lifecycle stage of a DirectoryContext.
type DirStatus string

const (
	DirDiscovered DirStatus = "discovered"
	DirAnalyzed   DirStatus = "analyzed"
	DirSkipped    DirStatus = "skipped"
	DirFailed     DirStatus = "failed"
)

// DirectoryContext is an immutable node in the discovered source tree.
//
// Invariant: a DirectoryContext never references a child not contained
// under Path; the tree is acyclic and leaves-first traversable.
type DirectoryContext struct {
	Path          SourcePath
	KnowledgePath KnowledgePath
	Files         []FileContext
	Subdirs       []DirectoryContext
	Status        DirStatus
	IsHandlerRoot bool
}

// Walk visits every directory in the tree rooted at d, leaves first
// (post-order), calling fn on each node including d itself.
func (d DirectoryContext) Walk(fn func(DirectoryContext)) {
	for _, sub := range d.Subdirs {
		sub.Walk(fn)
	}
	fn(d)
}

// HasProcessableContent reports whether d has any files or subdirectories
// at all (used by the empty-directory rule in the decision engine).
func (d DirectoryContext) HasProcessableContent() bool {
	return len(d.Files) > 0 || len(d.Subdirs) > 0
}

package domain

// SourcePath is an absolute path to a source file or directory.
type SourcePath string

// AnalysisPath is an absolute path to a file's cached analysis artifact.
//
// Invariant: for source P under root, AnalysisPath is
// out_root/project-base/relpath(P, root)+".analysis.md". The tree under
// out_root/project-base/ exactly mirrors the source tree.
type AnalysisPath string

// KnowledgePath is an absolute path to a directory's knowledge file.
//
// Invariant: for source directory D, the knowledge file is
// D.parent/(D.name+"_kb.md"), except when D is a handler root, in which
// case it is handler_root_output/"root_kb.md".
type KnowledgePath string

func (p SourcePath) String() string    { return string(p) }
func (p AnalysisPath) String() string  { return string(p) }
func (p KnowledgePath) String() string { return string(p) }

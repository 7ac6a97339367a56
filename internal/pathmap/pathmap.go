package pathmap

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/kbforge/kbforge/internal/domain"
)

// ErrNotRelative is returned when a path is not contained within the
// source root it is being mapped against.
var ErrNotRelative = errors.New("pathmap: path is not relative to source root")

// ErrRootCollision is returned when the source root's own directory name
// equals the handler name, which is also the name of the handler's
// directory under the output root.
var ErrRootCollision = errors.New("pathmap: handler output root collides with a source directory name")

const analysisSuffix = ".analysis.md"
const knowledgeSuffix = "_kb.md"
const rootKnowledgeFile = "root_kb.md"

// Mapper translates between a single handler's source root, its cache
// output root, and the knowledge files it produces.
type Mapper struct {
	sourceRoot string
	outRoot    string
	handler    string
}

// New builds a Mapper for one handler run. sourceRoot and outRoot must
// both be absolute; handler names the handler type directory under
// outRoot (e.g. "project-base").
func New(sourceRoot, outRoot, handler string) (*Mapper, error) {
	sourceRoot = filepath.Clean(sourceRoot)
	outRoot = filepath.Clean(outRoot)

	if filepath.Base(sourceRoot) == handler {
		return nil, ErrRootCollision
	}

	return &Mapper{sourceRoot: sourceRoot, outRoot: outRoot, handler: handler}, nil
}

// SourceRoot returns the handler's source root.
func (m *Mapper) SourceRoot() string { return m.sourceRoot }

// HandlerOutputDir returns out_root/<handler>, the root of the mirrored
// analysis-cache tree.
func (m *Mapper) HandlerOutputDir() string {
	return filepath.Join(m.outRoot, m.handler)
}

// IsHandlerRoot reports whether path is exactly the handler's source
// root: the one directory whose knowledge file lives in the output tree
// rather than adjacent to the source.
func (m *Mapper) IsHandlerRoot(path domain.SourcePath) bool {
	return filepath.Clean(string(path)) == m.sourceRoot
}

// AnalysisPathFor returns the cached analysis artifact path for a source
// file, mirroring its position under the source root into the handler's
// output tree with a .analysis.md suffix appended to the full name.
func (m *Mapper) AnalysisPathFor(path domain.SourcePath) (domain.AnalysisPath, error) {
	rel, err := relTo(m.sourceRoot, string(path))
	if err != nil {
		return "", err
	}
	return domain.AnalysisPath(filepath.Join(m.HandlerOutputDir(), rel+analysisSuffix)), nil
}

// KnowledgePathFor returns the knowledge file path for a source
// directory: adjacent to the directory for ordinary directories, or
// out_root/<handler>/root_kb.md for the handler root.
func (m *Mapper) KnowledgePathFor(dir domain.SourcePath) (domain.KnowledgePath, error) {
	clean := filepath.Clean(string(dir))

	if clean == m.sourceRoot {
		return domain.KnowledgePath(filepath.Join(m.HandlerOutputDir(), rootKnowledgeFile)), nil
	}

	if _, err := relTo(m.sourceRoot, clean); err != nil {
		return "", err
	}

	parent := filepath.Dir(clean)
	name := filepath.Base(clean)
	return domain.KnowledgePath(filepath.Join(parent, name+knowledgeSuffix)), nil
}

// SourceForAnalysisPath inverts AnalysisPathFor, recovering the source
// path an analysis artifact was produced from. Used by the orphan-
// detection phase to test whether a cached artifact's source still
// exists.
func (m *Mapper) SourceForAnalysisPath(path domain.AnalysisPath) (domain.SourcePath, error) {
	if !strings.HasSuffix(string(path), analysisSuffix) {
		return "", errors.New("pathmap: path does not have the analysis suffix")
	}

	rel, err := relTo(m.HandlerOutputDir(), string(path))
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, analysisSuffix)
	return domain.SourcePath(filepath.Join(m.sourceRoot, rel)), nil
}

// relTo returns path relative to root, erroring if path escapes root.
func relTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return "", ErrNotRelative
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrNotRelative
	}
	return rel, nil
}

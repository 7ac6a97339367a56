package pathmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbforge/internal/domain"
)

func TestAnalysisPathMirrorsSourceTree(t *testing.T) {
	m, err := New("/repo", "/repo/.kbforge/out", "project-base")
	require.NoError(t, err)

	ap, err := m.AnalysisPathFor(domain.SourcePath("/repo/internal/foo/bar.go"))
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisPath("/repo/.kbforge/out/project-base/internal/foo/bar.go.analysis.md"), ap)
}

func TestKnowledgePathAdjacentForOrdinaryDirectory(t *testing.T) {
	m, err := New("/repo", "/repo/.kbforge/out", "project-base")
	require.NoError(t, err)

	kp, err := m.KnowledgePathFor(domain.SourcePath("/repo/internal/foo"))
	require.NoError(t, err)
	require.Equal(t, domain.KnowledgePath("/repo/internal/foo_kb.md"), kp)
}

func TestKnowledgePathForHandlerRoot(t *testing.T) {
	m, err := New("/repo", "/repo/.kbforge/out", "project-base")
	require.NoError(t, err)

	require.True(t, m.IsHandlerRoot(domain.SourcePath("/repo")))

	kp, err := m.KnowledgePathFor(domain.SourcePath("/repo"))
	require.NoError(t, err)
	require.Equal(t, domain.KnowledgePath("/repo/.kbforge/out/project-base/root_kb.md"), kp)
}

func TestAnalysisPathRejectsPathOutsideRoot(t *testing.T) {
	m, err := New("/repo", "/repo/.kbforge/out", "project-base")
	require.NoError(t, err)

	_, err = m.AnalysisPathFor(domain.SourcePath("/other/file.go"))
	require.ErrorIs(t, err, ErrNotRelative)
}

func TestNewRejectsOutputRootNameCollision(t *testing.T) {
	_, err := New("/repo/project-base", "/out", "project-base")
	require.ErrorIs(t, err, ErrRootCollision)
}

func TestSourceForAnalysisPathInvertsAnalysisPathFor(t *testing.T) {
	m, err := New("/repo", "/repo/.kbforge/out", "project-base")
	require.NoError(t, err)

	source := domain.SourcePath("/repo/internal/foo/bar.go")
	ap, err := m.AnalysisPathFor(source)
	require.NoError(t, err)

	recovered, err := m.SourceForAnalysisPath(ap)
	require.NoError(t, err)
	require.Equal(t, source, recovered)
}

package decision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbforge/internal/cache"
	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/discovery"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/pathmap"
)

func setupTree(t *testing.T) (root, outRoot string) {
	t.Helper()
	root = t.TempDir()
	outRoot = filepath.Join(root, ".kbforge", "out")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))
	return root, outRoot
}

func discoverAndDecide(t *testing.T, root, outRoot string, mode config.IndexingMode) (*domain.DecisionReport, *pathmap.Mapper) {
	t.Helper()
	cfg := config.DefaultConfig(config.HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Extensions = nil

	tree, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)

	mapper, err := pathmap.New(root, outRoot, "project-base")
	require.NoError(t, err)

	deletions, err := DetectOrphans(tree, mapper)
	require.NoError(t, err)

	report, err := Decide(tree, mapper, mode, deletions)
	require.NoError(t, err)
	return report, mapper
}

func TestColdRunAnalyzesEveryFileAndDirectory(t *testing.T) {
	root, outRoot := setupTree(t)
	report, _ := discoverAndDecide(t, root, outRoot, config.Incremental)

	require.Len(t, report.FileDecisions, 3)
	for _, fd := range report.FileDecisions {
		require.Equal(t, domain.OutcomeAnalyzeFile, fd.Outcome)
	}

	require.Len(t, report.DirectoryDecisions, 2)
	for _, dd := range report.DirectoryDecisions {
		require.Equal(t, domain.OutcomeCreateDirectoryKB, dd.Outcome)
	}
}

func writeArtifacts(t *testing.T, root, outRoot string, mapper *pathmap.Mapper, files []string, dirs []string) {
	t.Helper()
	for _, f := range files {
		ap, err := mapper.AnalysisPathFor(domain.SourcePath(filepath.Join(root, f)))
		require.NoError(t, err)
		info, err := os.Stat(filepath.Join(root, f))
		require.NoError(t, err)
		require.NoError(t, cache.Write(string(ap), f, info.ModTime(), "analysis of "+f))
	}
	for _, d := range dirs {
		var kp domain.KnowledgePath
		var err error
		if d == "" {
			kp, err = mapper.KnowledgePathFor(domain.SourcePath(root))
		} else {
			kp, err = mapper.KnowledgePathFor(domain.SourcePath(filepath.Join(root, d)))
		}
		require.NoError(t, err)
		require.NoError(t, cache.Write(string(kp), d, time.Now(), "summary of "+d))
	}
}

func TestRerunUnchangedSkipsEverything(t *testing.T) {
	root, outRoot := setupTree(t)
	_, mapper := discoverAndDecide(t, root, outRoot, config.Incremental)
	writeArtifacts(t, root, outRoot, mapper, []string{"a.txt", "b.txt", filepath.Join("sub", "c.txt")}, []string{"", "sub"})

	report, _ := discoverAndDecide(t, root, outRoot, config.Incremental)

	for _, fd := range report.FileDecisions {
		require.Equal(t, domain.OutcomeSkipFileCached, fd.Outcome)
	}
	for _, dd := range report.DirectoryDecisions {
		require.Equal(t, domain.OutcomeSkipDirectoryFresh, dd.Outcome)
	}
}

func TestTouchingOneFileCascadesToParentOnly(t *testing.T) {
	root, outRoot := setupTree(t)
	_, mapper := discoverAndDecide(t, root, outRoot, config.Incremental)
	writeArtifacts(t, root, outRoot, mapper, []string{"a.txt", "b.txt", filepath.Join("sub", "c.txt")}, []string{"", "sub"})

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), future, future))

	report, _ := discoverAndDecide(t, root, outRoot, config.Incremental)

	require.Equal(t, domain.OutcomeAnalyzeFile, report.FileDecisions[domain.SourcePath(filepath.Join(root, "a.txt"))].Outcome)
	require.Equal(t, domain.OutcomeSkipFileCached, report.FileDecisions[domain.SourcePath(filepath.Join(root, "b.txt"))].Outcome)
	require.Equal(t, domain.OutcomeSkipFileCached, report.FileDecisions[domain.SourcePath(filepath.Join(root, "sub", "c.txt"))].Outcome)

	require.Equal(t, domain.OutcomeCreateDirectoryKB, report.DirectoryDecisions[domain.SourcePath(root)].Outcome)
	require.Equal(t, domain.ReasonCascadedFromChild, report.DirectoryDecisions[domain.SourcePath(root)].Reason)
	require.Equal(t, domain.OutcomeSkipDirectoryFresh, report.DirectoryDecisions[domain.SourcePath(filepath.Join(root, "sub"))].Outcome)
}

func TestEmptyDirectoryNeverProducesCreateDirectoryKB(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	outRoot := filepath.Join(root, ".kbforge", "out")

	report, _ := discoverAndDecide(t, root, outRoot, config.Incremental)

	require.Equal(t, domain.OutcomeSkipDirectoryFresh, report.DirectoryDecisions[domain.SourcePath(filepath.Join(root, "empty"))].Outcome)
}

func TestFullModeForcesEveryFileAndDirectory(t *testing.T) {
	root, outRoot := setupTree(t)
	_, mapper := discoverAndDecide(t, root, outRoot, config.Incremental)
	writeArtifacts(t, root, outRoot, mapper, []string{"a.txt", "b.txt", filepath.Join("sub", "c.txt")}, []string{"", "sub"})

	report, _ := discoverAndDecide(t, root, outRoot, config.Full)

	for _, fd := range report.FileDecisions {
		require.Equal(t, domain.OutcomeAnalyzeFile, fd.Outcome)
	}
	for _, dd := range report.DirectoryDecisions {
		require.Equal(t, domain.OutcomeCreateDirectoryKB, dd.Outcome)
	}
}

func TestDetectOrphansFindsDeletedSourceFile(t *testing.T) {
	root, outRoot := setupTree(t)
	cfg := config.DefaultConfig(config.HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Extensions = nil
	_, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)
	mapper, err := pathmap.New(root, outRoot, "project-base")
	require.NoError(t, err)

	writeArtifacts(t, root, outRoot, mapper, []string{"a.txt", "b.txt", filepath.Join("sub", "c.txt")}, []string{"", "sub"})

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	tree2, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)

	deletions, err := DetectOrphans(tree2, mapper)
	require.NoError(t, err)

	found := false
	for _, d := range deletions {
		if d.Kind == domain.KindOrphanedAnalysis {
			found = true
		}
	}
	require.True(t, found)
}

func TestDeletedSourceMarksParentDirectorySelfStale(t *testing.T) {
	root, outRoot := setupTree(t)
	_, mapper := discoverAndDecide(t, root, outRoot, config.Incremental)
	writeArtifacts(t, root, outRoot, mapper, []string{"a.txt", "b.txt", filepath.Join("sub", "c.txt")}, []string{"", "sub"})

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	report, _ := discoverAndDecide(t, root, outRoot, config.Incremental)

	require.Equal(t, domain.OutcomeSkipFileCached, report.FileDecisions[domain.SourcePath(filepath.Join(root, "a.txt"))].Outcome)
	require.Equal(t, domain.OutcomeCreateDirectoryKB, report.DirectoryDecisions[domain.SourcePath(root)].Outcome)
	require.Equal(t, domain.ReasonSelfStale, report.DirectoryDecisions[domain.SourcePath(root)].Reason)
	require.Equal(t, domain.OutcomeSkipDirectoryFresh, report.DirectoryDecisions[domain.SourcePath(filepath.Join(root, "sub"))].Outcome)
	require.NotEmpty(t, report.Deletions)
}

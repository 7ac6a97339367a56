package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/decision"
	"github.com/kbforge/kbforge/internal/discovery"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/pathmap"
)

func buildPlan(t *testing.T) *domain.ExecutionPlan {
	t.Helper()
	root := t.TempDir()
	outRoot := filepath.Join(root, ".kbforge", "out")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0o644))

	cfg := config.DefaultConfig(config.HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Extensions = nil

	tree, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)

	mapper, err := pathmap.New(root, outRoot, "project-base")
	require.NoError(t, err)

	deletions, err := decision.DetectOrphans(tree, mapper)
	require.NoError(t, err)

	report, err := decision.Decide(tree, mapper, config.Incremental, deletions)
	require.NoError(t, err)

	p, err := Generate(report, tree, mapper)
	require.NoError(t, err)
	return p
}

func TestGenerateProducesValidPlanForColdRun(t *testing.T) {
	p := buildPlan(t)

	require.NoError(t, Validate(p))
	require.Equal(t, 5, p.ExpectedLLMCalls) // 3 files + 2 directories

	byID := p.ByID()
	var analyzeCount, createKBCount int
	for _, t := range p.Tasks {
		switch t.Type {
		case domain.TaskAnalyzeFileLLM:
			analyzeCount++
		case domain.TaskCreateDirectoryKB:
			createKBCount++
		}
	}
	require.Equal(t, 3, analyzeCount)
	require.Equal(t, 2, createKBCount)
	require.NotEmpty(t, byID)
}

func TestDirectoryTaskDependsOnAllFileAndSubdirTasks(t *testing.T) {
	p := buildPlan(t)
	byID := p.ByID()

	var subDirTask, rootDirTask domain.AtomicTask
	for _, t := range p.Tasks {
		if t.Type != domain.TaskCreateDirectoryKB {
			continue
		}
		if filepath.Base(t.Target) == "sub" {
			subDirTask = t
		} else {
			rootDirTask = t
		}
	}

	require.NotEmpty(t, subDirTask.ID)
	require.NotEmpty(t, rootDirTask.ID)

	found := false
	for _, dep := range rootDirTask.Dependencies {
		if byID[dep].ID == subDirTask.ID {
			found = true
		}
	}
	require.True(t, found, "root directory task must depend on sub directory task")

	fileDeps := 0
	for _, dep := range rootDirTask.Dependencies {
		if byID[dep].Type == domain.TaskAnalyzeFileLLM {
			fileDeps++
		}
	}
	require.Equal(t, 2, fileDeps, "root directory task must depend on the tasks for a.txt and b.txt")
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	p := &domain.ExecutionPlan{
		Tasks: []domain.AtomicTask{
			{ID: "a", Dependencies: []string{"ghost"}},
		},
	}
	var target *domain.PlanValidationError
	err := Validate(p)
	require.ErrorAs(t, err, &target)
}

func TestValidateRejectsCycle(t *testing.T) {
	p := &domain.ExecutionPlan{
		Tasks: []domain.AtomicTask{
			{ID: "a", Dependencies: []string{"b"}},
			{ID: "b", Dependencies: []string{"a"}},
		},
	}
	var target *domain.PlanValidationError
	err := Validate(p)
	require.ErrorAs(t, err, &target)
}

func TestSanitizeIDCollapsesSeparatorsAndNonWordChars(t *testing.T) {
	id := sanitizeID("file", "/repo/internal/foo-bar.go")
	require.Equal(t, "file_repo_internal_foo_bar_go", id)
}

func TestGenerateFailsOnTaskIDCollisionInsteadOfMerging(t *testing.T) {
	root := t.TempDir()
	outRoot := filepath.Join(root, ".kbforge", "out")

	// Both names sanitize to the same task id; the plan must refuse to
	// merge them into one task.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a-b.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a_b.txt"), []byte("x"), 0o644))

	cfg := config.DefaultConfig(config.HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Extensions = nil

	tree, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)

	mapper, err := pathmap.New(root, outRoot, "project-base")
	require.NoError(t, err)

	report, err := decision.Decide(tree, mapper, config.Incremental, nil)
	require.NoError(t, err)

	_, err = Generate(report, tree, mapper)
	var target *domain.PlanValidationError
	require.ErrorAs(t, err, &target)
}

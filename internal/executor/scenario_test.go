package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/decision"
	"github.com/kbforge/kbforge/internal/discovery"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/llmadapter"
	"github.com/kbforge/kbforge/internal/pathmap"
	"github.com/kbforge/kbforge/internal/plan"
)

// stubLLM answers every reviewer prompt with COMPLIANT and every analysis
// prompt with a sentinel-terminated summary, except for conversations
// mentioning truncateFor, which never receive the sentinel.
type stubLLM struct {
	mu            sync.Mutex
	analysisCalls int
	truncateFor   string
}

func (c *stubLLM) Complete(ctx context.Context, messages []llmadapter.Message) (string, error) {
	last := messages[len(messages)-1].Content
	if strings.HasPrefix(last, "Review the following response") {
		return "COMPLIANT", nil
	}

	c.mu.Lock()
	c.analysisCalls++
	c.mu.Unlock()

	if c.truncateFor != "" {
		for _, m := range messages {
			if strings.Contains(m.Content, c.truncateFor) {
				return "This summary stops mid", nil
			}
		}
	}
	return "Synthesized summary of the target." + llmadapter.SentinelMarker, nil
}

func scenarioTree(t *testing.T) (root, outRoot string, cfg *config.Config) {
	t.Helper()
	root = t.TempDir()
	outRoot = filepath.Join(root, ".kbforge", "out")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("bravo"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("charlie"), 0o644))

	cfg = config.DefaultConfig(config.HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Extensions = []string{".log"}
	return root, outRoot, cfg
}

func runPipeline(t *testing.T, root, outRoot string, cfg *config.Config, client llmadapter.Client) *domain.ExecutionResults {
	t.Helper()

	tree, err := discovery.Walk(root, cfg, nil)
	require.NoError(t, err)

	mapper, err := pathmap.New(root, outRoot, "project-base")
	require.NoError(t, err)

	deletions, err := decision.DetectOrphans(tree, mapper)
	require.NoError(t, err)

	report, err := decision.Decide(tree, mapper, cfg.ChangeDetection.IndexingMode, deletions)
	require.NoError(t, err)

	execPlan, err := plan.Generate(report, tree, mapper)
	require.NoError(t, err)

	adapter := llmadapter.New(client, llmadapter.Options{
		MaxContinuationAttempts: 2,
		MaxReviewIterations:     1,
	}, nil, nil)
	handlers := BuildHandlers(Wiring{Mapper: mapper, Adapter: adapter, Config: cfg})

	eng := New(handlers, 2, true, nil, nil)
	results, err := eng.Run(context.Background(), execPlan)
	require.NoError(t, err)
	return results
}

func TestScenarioColdRunAnalyzesEverythingAndWritesAllArtifacts(t *testing.T) {
	root, outRoot, cfg := scenarioTree(t)
	client := &stubLLM{}

	results := runPipeline(t, root, outRoot, cfg, client)

	require.Equal(t, 5, results.LLMCallsMade) // 3 files + 2 directories
	require.Empty(t, results.Failed)
	require.Equal(t, 3, results.FilesProcessed)
	require.Equal(t, 2, results.DirsProcessed)

	base := filepath.Join(outRoot, "project-base")
	for _, p := range []string{
		filepath.Join(base, "a.txt.analysis.md"),
		filepath.Join(base, "b.txt.analysis.md"),
		filepath.Join(base, "sub", "c.txt.analysis.md"),
		filepath.Join(base, "root_kb.md"),
		filepath.Join(root, "sub_kb.md"),
	} {
		_, err := os.Stat(p)
		require.NoError(t, err, p)
	}
}

func TestScenarioRerunUnchangedMakesZeroLLMCalls(t *testing.T) {
	root, outRoot, cfg := scenarioTree(t)
	client := &stubLLM{}

	runPipeline(t, root, outRoot, cfg, client)
	first := client.analysisCalls

	results := runPipeline(t, root, outRoot, cfg, client)

	require.Equal(t, 0, results.LLMCallsMade)
	require.Equal(t, first, client.analysisCalls)
	require.Empty(t, results.Failed)
}

func TestScenarioTouchingOneFileRebuildsItAndItsAncestorsOnly(t *testing.T) {
	root, outRoot, cfg := scenarioTree(t)
	client := &stubLLM{}

	runPipeline(t, root, outRoot, cfg, client)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), future, future))

	results := runPipeline(t, root, outRoot, cfg, client)

	require.Equal(t, 2, results.LLMCallsMade) // a.txt and the root directory
	require.Equal(t, 1, results.FilesProcessed)
	require.Equal(t, 1, results.DirsProcessed)
}

func TestScenarioDeletingOneSourceDropsItsArtifactAndRebuildsTheParentKB(t *testing.T) {
	root, outRoot, cfg := scenarioTree(t)
	client := &stubLLM{}

	runPipeline(t, root, outRoot, cfg, client)

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))

	results := runPipeline(t, root, outRoot, cfg, client)

	require.Equal(t, 1, results.LLMCallsMade) // only the root directory KB
	require.Equal(t, 1, results.FilesDeleted)

	_, err := os.Stat(filepath.Join(outRoot, "project-base", "b.txt.analysis.md"))
	require.True(t, os.IsNotExist(err))
}

func TestScenarioTruncationWritesNoArtifactAndKeepsItOutOfTheParentKB(t *testing.T) {
	root, outRoot, cfg := scenarioTree(t)
	client := &stubLLM{truncateFor: "a.txt"}

	results := runPipeline(t, root, outRoot, cfg, client)

	require.Len(t, results.Failed, 1)
	var trunc *domain.TruncationDetected
	require.ErrorAs(t, results.Failed[0].Err, &trunc)

	_, err := os.Stat(filepath.Join(outRoot, "project-base", "a.txt.analysis.md"))
	require.True(t, os.IsNotExist(err), "no artifact may exist for a truncated analysis")

	kb, readErr := os.ReadFile(filepath.Join(outRoot, "project-base", "root_kb.md"))
	require.NoError(t, readErr, "the parent knowledge file must still be built from the surviving files")
	require.NotContains(t, string(kb), "a.txt")
	require.Contains(t, string(kb), "b.txt")
}

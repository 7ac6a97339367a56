package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbforge/kbforge/internal/domain"
)

func TestLoadGeneratesDefaultDocumentWhenMissing(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir, HandlerProjectBase)

	cfg, err := mgr.Load()
	require.NoError(t, err)
	require.Equal(t, HandlerProjectBase, cfg.Handler)
	require.Equal(t, Incremental, cfg.ChangeDetection.IndexingMode)

	_, statErr := os.Stat(filepath.Join(dir, "project-base.indexing-config.json"))
	require.NoError(t, statErr)

	require.Same(t, cfg, mgr.Get())
}

func TestLoadParsesJSONCComments(t *testing.T) {
	dir := t.TempDir()
	doc := `{
  // which handler this config governs
  "handler": "project-base",
  "file_processing": {"max_file_size": 1024, "batch_size": 5, "max_concurrent_operations": 2},
  "content_filtering": {
    "exclusions": {"extensions": [".log"], "directories": ["dist"]},
    "chunk_size": 4000, /* overlap must stay below this */ "chunk_overlap": 200
  },
  "llm_config": {"model": "auto", "temperature": 0.3, "max_tokens": 4096},
  "change_detection": {"timestamp_tolerance_seconds": 0, "indexing_mode": "incremental"},
  "error_handling": {"continue_on_file_errors": true},
  "output_config": {"out_root": ".kbforge/out"},
  "debug_config": {}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project-base.indexing-config.json"), []byte(doc), 0o644))

	cfg, err := NewManager(dir, HandlerProjectBase).Load()
	require.NoError(t, err)
	require.Equal(t, int64(1024), cfg.FileProcessing.MaxFileSize)
	require.Equal(t, 2, cfg.FileProcessing.MaxConcurrentOperations)
	require.Equal(t, []string{"dist"}, cfg.ContentFiltering.Exclusions.Directories)
}

func TestLoadRejectsInvalidJSONWithConfigurationError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project-base.indexing-config.json"), []byte("{nope"), 0o644))

	_, err := NewManager(dir, HandlerProjectBase).Load()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRejectsChunkOverlapNotBelowChunkSize(t *testing.T) {
	cfg := DefaultConfig(HandlerProjectBase)
	cfg.ContentFiltering.ChunkSize = 100
	cfg.ContentFiltering.ChunkOverlap = 100

	err := cfg.Validate()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "content_filtering.chunk_overlap", cfgErr.Field)
}

func TestValidateRequiresHandlerExclusionsForProjectBase(t *testing.T) {
	cfg := DefaultConfig(HandlerProjectBase)
	cfg.ContentFiltering.Exclusions = ExclusionSet{}

	err := cfg.Validate()
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateReportsEveryViolationAtOnce(t *testing.T) {
	cfg := DefaultConfig(HandlerProjectBase)
	cfg.ContentFiltering.Exclusions = ExclusionSet{}
	cfg.FileProcessing.MaxConcurrentOperations = 0
	cfg.FileProcessing.MaxFileSize = -1

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "content_filtering.exclusions")
	require.Contains(t, err.Error(), "max_concurrent_operations")
	require.Contains(t, err.Error(), "max_file_size")
}

func TestExpandStringResolvesEnvVars(t *testing.T) {
	m := NewManager(t.TempDir(), HandlerProjectBase)
	m.envLookup = func(name string) (string, bool) {
		if name == "OUT" {
			return "/data/out", true
		}
		return "", false
	}

	require.Equal(t, "/data/out/kb", m.expandString("${OUT}/kb"))
	require.Equal(t, "/data/out/kb", m.expandString("$OUT/kb"))
	require.Equal(t, "$MISSING/kb", m.expandString("$MISSING/kb"))
}

func TestShouldExcludeDirectoryMatchesNamesAndGlobs(t *testing.T) {
	cfg := DefaultConfig(HandlerProjectBase)
	cfg.ContentFiltering.Exclusions.Directories = []string{"dist", "**/generated"}

	require.True(t, ShouldExcludeDirectory(cfg, "dist", "dist"))
	require.True(t, ShouldExcludeDirectory(cfg, "node_modules", "pkg/node_modules"))
	require.True(t, ShouldExcludeDirectory(cfg, "generated", "internal/api/generated"))
	require.False(t, ShouldExcludeDirectory(cfg, "internal", "internal"))
}

func TestShouldExcludeExtensionComposesUniversalSet(t *testing.T) {
	cfg := DefaultConfig(HandlerProjectBase)

	require.True(t, ShouldExcludeExtension(cfg, ".exe"))
	require.True(t, ShouldExcludeExtension(cfg, ".log"))
	require.False(t, ShouldExcludeExtension(cfg, ".go"))
}

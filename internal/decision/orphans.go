package decision

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/pathmap"
)

// DetectOrphans walks the output tree (cached analysis artifacts) and
// the discovered source tree (adjacent knowledge files) and emits a
// DeletionDecision for every artifact whose source no longer exists.
// A handler-root directory is never itself deleted, only its contents.
func DetectOrphans(discovered domain.DirectoryContext, mapper *pathmap.Mapper) ([]domain.DeletionDecision, error) {
	var deletions []domain.DeletionDecision

	subdirNames := make(map[string]map[string]bool)
	discovered.Walk(func(d domain.DirectoryContext) {
		names := make(map[string]bool, len(d.Subdirs))
		for _, sub := range d.Subdirs {
			names[filepath.Base(string(sub.Path))] = true
		}
		subdirNames[string(d.Path)] = names
	})

	outputRoot := mapper.HandlerOutputDir()
	if _, err := os.Stat(outputRoot); err == nil {
		err := filepath.WalkDir(outputRoot, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if path == outputRoot {
				return nil
			}

			if entry.IsDir() {
				rel, relErr := filepath.Rel(outputRoot, path)
				if relErr != nil {
					return nil
				}
				sourceDir := filepath.Join(mapper.SourceRoot(), rel)
				if _, statErr := os.Stat(sourceDir); os.IsNotExist(statErr) {
					deletions = append(deletions, domain.DeletionDecision{
						Target:         path,
						Kind:           domain.KindOrphanedDirectory,
						IsSafeToDelete: true,
					})
					return filepath.SkipDir
				}
				return nil
			}

			if !strings.HasSuffix(path, ".analysis.md") {
				return nil
			}

			srcPath, convErr := mapper.SourceForAnalysisPath(domain.AnalysisPath(path))
			if convErr != nil {
				return nil
			}
			if _, statErr := os.Stat(string(srcPath)); os.IsNotExist(statErr) {
				deletions = append(deletions, domain.DeletionDecision{
					Target:         path,
					Kind:           domain.KindOrphanedAnalysis,
					IsSafeToDelete: true,
				})
			}
			return nil
		})
		if err != nil {
			return nil, &domain.DiscoveryError{Path: outputRoot, Err: err}
		}
	}

	discovered.Walk(func(d domain.DirectoryContext) {
		entries, err := os.ReadDir(string(d.Path))
		if err != nil {
			return
		}
		known := subdirNames[string(d.Path)]
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_kb.md") {
				continue
			}
			dirName := strings.TrimSuffix(entry.Name(), "_kb.md")
			if known[dirName] {
				continue
			}
			deletions = append(deletions, domain.DeletionDecision{
				Target:         filepath.Join(string(d.Path), entry.Name()),
				Kind:           domain.KindOrphanedKnowledge,
				IsSafeToDelete: true,
			})
		}
	})

	return deletions, nil
}

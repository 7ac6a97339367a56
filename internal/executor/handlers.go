package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kbforge/kbforge/internal/cache"
	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/llmadapter"
	"github.com/kbforge/kbforge/internal/pathmap"
	"github.com/kbforge/kbforge/internal/render"
)

// Wiring bundles the collaborators the production task handlers need:
// the path translator, the LLM adapter, and the active configuration
// (for exclusion rules when a directory handler re-lists its children).
type Wiring struct {
	Mapper  *pathmap.Mapper
	Adapter *llmadapter.Adapter
	Config  *config.Config
}

// BuildHandlers returns the dispatch table for a production Engine.
func BuildHandlers(w Wiring) map[domain.TaskType]Handler {
	return map[domain.TaskType]Handler{
		domain.TaskAnalyzeFileLLM:          w.analyzeFile,
		domain.TaskSkipFileCached:          skipNoop,
		domain.TaskCreateDirectoryKB:       w.createDirectoryKB,
		domain.TaskSkipDirectoryFresh:      skipNoop,
		domain.TaskDeleteOrphanedFile:      w.deleteArtifact,
		domain.TaskDeleteOrphanedDirectory: w.deleteArtifact,
		domain.TaskCreateCacheStructure:    w.createCacheStructure,
		domain.TaskVerifyCacheFreshness:    w.verifyCacheFreshness,
		domain.TaskVerifyKBFreshness:       w.verifyKBFreshness,
	}
}

func skipNoop(ctx context.Context, task domain.AtomicTask) (bool, error) {
	return false, nil
}

func (w Wiring) analyzeFile(ctx context.Context, task domain.AtomicTask) (bool, error) {
	source := task.Target
	content, err := os.ReadFile(source)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	info, err := os.Stat(source)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}

	prompt := fileAnalysisPrompt(source, string(content))
	result, err := w.Adapter.Analyze(ctx, "file", source, prompt)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}

	ap, err := w.Mapper.AnalysisPathFor(domain.SourcePath(source))
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	if err := cache.Write(string(ap), source, info.ModTime(), result.Text); err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	return result.NonCompliant, nil
}

func (w Wiring) createDirectoryKB(ctx context.Context, task domain.AtomicTask) (bool, error) {
	dir := task.Target

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}

	fileSummaries := make(map[string]string)
	subdirSummaries := make(map[string]string)
	var fileNames, subdirNames []string

	for _, entry := range entries {
		name := entry.Name()
		childPath := filepath.Join(dir, name)

		if entry.IsDir() {
			rel, relErr := filepath.Rel(w.Mapper.SourceRoot(), childPath)
			if relErr == nil && config.ShouldExcludeDirectory(w.Config, name, rel) {
				continue
			}
			kp, err := w.Mapper.KnowledgePathFor(domain.SourcePath(childPath))
			if err != nil {
				continue
			}
			body, found, err := cache.Read(string(kp))
			if err != nil || !found {
				continue
			}
			subdirSummaries[name] = body
			subdirNames = append(subdirNames, name)
			continue
		}

		if config.ShouldExcludeExtension(w.Config, filepath.Ext(name)) {
			continue
		}
		ap, err := w.Mapper.AnalysisPathFor(domain.SourcePath(childPath))
		if err != nil {
			continue
		}
		body, found, err := cache.Read(string(ap))
		if err != nil || !found {
			continue
		}
		fileSummaries[name] = body
		fileNames = append(fileNames, name)
	}

	prompt := render.PromptForDirectory(filepath.Base(dir), fileSummaries, subdirSummaries)
	result, err := w.Adapter.Analyze(ctx, "directory", dir, prompt)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}

	body := render.Directory(render.DirectoryInput{
		ProjectRoot: w.Mapper.SourceRoot(),
		SourceDir:   dir,
		Summary:     result.Text,
		FileNames:   fileNames,
		SubdirNames: subdirNames,
		GeneratedAt: time.Now(),
	})

	kp, err := w.Mapper.KnowledgePathFor(domain.SourcePath(dir))
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	if err := cache.Write(string(kp), dir, time.Now(), body); err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	return result.NonCompliant, nil
}

func (w Wiring) createCacheStructure(ctx context.Context, task domain.AtomicTask) (bool, error) {
	if err := os.MkdirAll(task.Target, 0o755); err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	return false, nil
}

func (w Wiring) deleteArtifact(ctx context.Context, task domain.AtomicTask) (bool, error) {
	if !task.IsSafeToDelete {
		return false, nil
	}
	var err error
	if task.Type == domain.TaskDeleteOrphanedDirectory {
		err = os.RemoveAll(task.Target)
	} else {
		err = os.Remove(task.Target)
	}
	if err != nil && !os.IsNotExist(err) {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	return false, nil
}

func (w Wiring) verifyCacheFreshness(ctx context.Context, task domain.AtomicTask) (bool, error) {
	ap, err := w.Mapper.AnalysisPathFor(domain.SourcePath(task.Target))
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	info, err := os.Stat(task.Target)
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	fresh, reason := cache.IsFresh(string(ap), info.ModTime())
	if !fresh {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: fmt.Errorf("cache not fresh after write: %s", reason)}
	}
	return false, nil
}

func (w Wiring) verifyKBFreshness(ctx context.Context, task domain.AtomicTask) (bool, error) {
	kp, err := w.Mapper.KnowledgePathFor(domain.SourcePath(task.Target))
	if err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: err}
	}
	if _, err := os.Stat(string(kp)); err != nil {
		return false, &domain.TaskIOError{TaskID: task.ID, Err: fmt.Errorf("knowledge file not present after write: %w", err)}
	}
	return false, nil
}

func fileAnalysisPrompt(source, content string) string {
	return fmt.Sprintf("Analyze the file %q and summarize its purpose, key exports, and notable dependencies. "+
		"Be concrete; do not pad with generic commentary.\n\n---\n%s", source, content)
}

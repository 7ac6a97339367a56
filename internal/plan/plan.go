package plan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/pathmap"
)

// Rough per-task-type duration estimates used for estimated_duration
// totals and for breaking ties within the ready set. LLM calls dominate;
// everything else is filesystem-bound and fast.
const (
	durationAnalyzeFile    = 8 * time.Second
	durationCreateKB       = 5 * time.Second
	durationSkip           = 5 * time.Millisecond
	durationCacheStructure = 10 * time.Millisecond
	durationDeleteArtifact = 20 * time.Millisecond
	durationVerify         = 5 * time.Millisecond
)

// Generate builds a validated ExecutionPlan from a DecisionReport,
// reading report.Deletions for the orphan-cleanup phase.
func Generate(report *domain.DecisionReport, discovered domain.DirectoryContext, mapper *pathmap.Mapper) (*domain.ExecutionPlan, error) {
	g := &generator{
		report:   report,
		mapper:   mapper,
		byID:     make(map[string]domain.AtomicTask),
		dirFiles: make(map[string][]string),
	}

	g.cleanupPhase(report.Deletions)
	if err := g.cacheStructurePhase(); err != nil {
		return nil, err
	}
	if err := g.fileTasksPhase(); err != nil {
		return nil, err
	}
	if err := g.directoryTasksPhase(discovered); err != nil {
		return nil, err
	}
	g.verificationPhase()

	tasks := append([]domain.AtomicTask(nil), g.tasks...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	p := &domain.ExecutionPlan{Tasks: tasks}
	if err := Validate(p); err != nil {
		return nil, err
	}

	for _, t := range tasks {
		p.EstimatedDuration += t.EstimatedDuration
		if t.Type == domain.TaskAnalyzeFileLLM || t.Type == domain.TaskCreateDirectoryKB {
			p.ExpectedLLMCalls++
		}
	}
	return p, nil
}

type generator struct {
	report *domain.DecisionReport
	mapper *pathmap.Mapper

	// tasks holds every task in emission order, including any whose id
	// collides with an earlier one; Validate rejects the collision
	// instead of letting two targets silently merge into one task.
	tasks []domain.AtomicTask
	byID  map[string]domain.AtomicTask

	// dirFiles indexes, per directory path, the file task ids that must
	// complete before that directory's own task can start.
	dirFiles map[string][]string

	// fileTaskID/dirTaskID let the verification phase find the task it
	// verifies.
	fileTaskID map[domain.SourcePath]string
	dirTaskID  map[domain.SourcePath]string

	// cacheDirTaskID maps an analysis-cache directory to its
	// CreateCacheStructure task id.
	cacheDirTaskID map[string]string
}

func (g *generator) add(t domain.AtomicTask) {
	g.tasks = append(g.tasks, t)
	if _, exists := g.byID[t.ID]; !exists {
		g.byID[t.ID] = t
	}
}

func (g *generator) cleanupPhase(deletions []domain.DeletionDecision) {
	for _, d := range deletions {
		taskType := domain.TaskDeleteOrphanedFile
		if d.Kind == domain.KindOrphanedDirectory {
			taskType = domain.TaskDeleteOrphanedDirectory
		}
		id := sanitizeID("cleanup", d.Target)
		g.add(domain.AtomicTask{
			ID:                id,
			Type:              taskType,
			Target:            d.Target,
			Priority:          domain.PriorityCleanup,
			EstimatedDuration: durationDeleteArtifact,
			IsSafeToDelete:    d.IsSafeToDelete,
			Metadata:          map[string]string{"kind": string(d.Kind)},
		})
	}
}

func (g *generator) cacheStructurePhase() error {
	g.cacheDirTaskID = make(map[string]string)

	dirsNeeded := make(map[string]bool)
	for target, fd := range g.report.FileDecisions {
		if fd.Outcome != domain.OutcomeAnalyzeFile {
			continue
		}
		ap, err := g.mapper.AnalysisPathFor(target)
		if err != nil {
			return &domain.PlanValidationError{Reason: err.Error()}
		}
		dirsNeeded[filepath.Dir(string(ap))] = true
	}

	dirs := make([]string, 0, len(dirsNeeded))
	for d := range dirsNeeded {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		id := sanitizeID("cachestruct", dir)
		var deps []string
		for _, t := range g.tasks {
			if t.Priority != domain.PriorityCleanup {
				continue
			}
			if withinOrEqual(dir, t.Target) {
				deps = append(deps, t.ID)
			}
		}
		sort.Strings(deps)
		g.add(domain.AtomicTask{
			ID:                id,
			Type:              domain.TaskCreateCacheStructure,
			Target:            dir,
			Dependencies:      deps,
			Priority:          domain.PriorityCacheStructure,
			EstimatedDuration: durationCacheStructure,
		})
		g.cacheDirTaskID[dir] = id
	}
	return nil
}

func (g *generator) fileTasksPhase() error {
	g.fileTaskID = make(map[domain.SourcePath]string)

	for target, fd := range g.report.FileDecisions {
		ap, err := g.mapper.AnalysisPathFor(target)
		if err != nil {
			return &domain.PlanValidationError{Reason: err.Error()}
		}
		dir := filepath.Dir(string(ap))

		taskType := domain.TaskSkipFileCached
		duration := durationSkip
		if fd.Outcome == domain.OutcomeAnalyzeFile {
			taskType = domain.TaskAnalyzeFileLLM
			duration = durationAnalyzeFile
		}

		id := sanitizeID("file", string(target))
		var deps []string
		if cacheTaskID, ok := g.cacheDirTaskID[dir]; ok {
			deps = append(deps, cacheTaskID)
		}

		g.add(domain.AtomicTask{
			ID:                id,
			Type:              taskType,
			Target:            string(target),
			Dependencies:      deps,
			Priority:          domain.PriorityFileTask,
			EstimatedDuration: duration,
			Metadata:          map[string]string{"reason": string(fd.Reason)},
		})
		g.fileTaskID[target] = id

		parentDir := filepath.Dir(string(target))
		g.dirFiles[parentDir] = append(g.dirFiles[parentDir], id)
	}
	return nil
}

func (g *generator) directoryTasksPhase(discovered domain.DirectoryContext) error {
	g.dirTaskID = make(map[domain.SourcePath]string)

	var walkErr error
	discovered.Walk(func(d domain.DirectoryContext) {
		if walkErr != nil {
			return
		}
		dd, ok := g.report.DirectoryDecisions[d.Path]
		if !ok {
			walkErr = &domain.PlanValidationError{Reason: fmt.Sprintf("missing directory decision for %s", d.Path)}
			return
		}

		taskType := domain.TaskSkipDirectoryFresh
		duration := durationSkip
		if dd.Outcome == domain.OutcomeCreateDirectoryKB {
			taskType = domain.TaskCreateDirectoryKB
			duration = durationCreateKB
		}

		id := sanitizeID("dir", string(d.Path))

		var deps []string
		deps = append(deps, g.dirFiles[string(d.Path)]...)
		for _, sub := range d.Subdirs {
			if subID, ok := g.dirTaskID[sub.Path]; ok {
				deps = append(deps, subID)
			}
		}
		sort.Strings(deps)

		g.add(domain.AtomicTask{
			ID:                id,
			Type:              taskType,
			Target:            string(d.Path),
			Dependencies:      deps,
			Priority:          domain.PriorityDirectoryTask,
			EstimatedDuration: duration,
			Metadata:          map[string]string{"reason": string(dd.Reason)},
		})
		g.dirTaskID[d.Path] = id
	})
	return walkErr
}

func (g *generator) verificationPhase() {
	for target, fd := range g.report.FileDecisions {
		if fd.Outcome != domain.OutcomeAnalyzeFile {
			continue
		}
		fileTaskID := g.fileTaskID[target]
		id := sanitizeID("verifycache", string(target))
		g.add(domain.AtomicTask{
			ID:                id,
			Type:              domain.TaskVerifyCacheFreshness,
			Target:            string(target),
			Dependencies:      []string{fileTaskID},
			Priority:          domain.PriorityVerification,
			EstimatedDuration: durationVerify,
		})
	}

	for target, dd := range g.report.DirectoryDecisions {
		if dd.Outcome != domain.OutcomeCreateDirectoryKB {
			continue
		}
		dirTaskID := g.dirTaskID[target]
		id := sanitizeID("verifykb", string(target))
		g.add(domain.AtomicTask{
			ID:                id,
			Type:              domain.TaskVerifyKBFreshness,
			Target:            string(target),
			Dependencies:      []string{dirTaskID},
			Priority:          domain.PriorityVerification,
			EstimatedDuration: durationVerify,
		})
	}
}

// withinOrEqual reports whether target is parent itself or a descendant
// of parent — used to find which cleanup tasks free a cache-structure
// directory's namespace before it gets created.
func withinOrEqual(parent, target string) bool {
	parent = filepath.Clean(parent)
	target = filepath.Clean(target)
	if parent == target {
		return true
	}
	rel, err := filepath.Rel(parent, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

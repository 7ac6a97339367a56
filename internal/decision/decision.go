package decision

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbforge/kbforge/internal/cache"
	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/pathmap"
)

// Decide runs the file-level and directory-level phases of the rebuild
// calculus over a discovered tree and returns a DecisionReport with
// deletions folded in. deletions come from DetectOrphans, which walks
// the output tree rather than the discovered source tree and therefore
// runs first: a directory that just lost a constituent (its artifact is
// being deleted) must rebuild its knowledge file even though no mtime
// under it moved.
func Decide(root domain.DirectoryContext, mapper *pathmap.Mapper, mode config.IndexingMode, deletions []domain.DeletionDecision) (*domain.DecisionReport, error) {
	report := domain.NewDecisionReport()
	report.Deletions = deletions
	now := time.Now()

	affected := affectedSourceDirs(deletions, mapper)

	if _, err := decideDirectory(root, mapper, mode, affected, report, now); err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}

// affectedSourceDirs maps each deletion back to the source directory
// whose knowledge file must be rebuilt because a constituent vanished.
func affectedSourceDirs(deletions []domain.DeletionDecision, mapper *pathmap.Mapper) map[domain.SourcePath]bool {
	affected := make(map[domain.SourcePath]bool, len(deletions))
	for _, d := range deletions {
		switch d.Kind {
		case domain.KindOrphanedAnalysis:
			src, err := mapper.SourceForAnalysisPath(domain.AnalysisPath(d.Target))
			if err != nil {
				continue
			}
			affected[domain.SourcePath(filepath.Dir(string(src)))] = true
		case domain.KindOrphanedKnowledge:
			// Knowledge files sit adjacent to the directory they
			// describe, so the directory holding the orphan is the one
			// that lost a subdirectory.
			affected[domain.SourcePath(filepath.Dir(d.Target))] = true
		case domain.KindOrphanedDirectory:
			rel, err := filepath.Rel(mapper.HandlerOutputDir(), d.Target)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			sourceDir := filepath.Join(mapper.SourceRoot(), rel)
			affected[domain.SourcePath(filepath.Dir(sourceDir))] = true
		}
	}
	return affected
}

// decideDirectory processes d post-order (children first), recording
// file decisions and this directory's own decision into report, and
// returns d's own RebuildDecision so the caller (d's parent) can fold it
// into its own cascade check. Cascade propagation therefore falls out of
// this single bottom-up pass rather than needing a separate phase.
func decideDirectory(d domain.DirectoryContext, mapper *pathmap.Mapper, mode config.IndexingMode, affected map[domain.SourcePath]bool, report *domain.DecisionReport, now time.Time) (domain.RebuildDecision, error) {
	anyChildAnalyze := false
	var fileModTimes []time.Time

	for _, f := range d.Files {
		fd, err := decideFile(f, mapper, mode, now)
		if err != nil {
			return domain.RebuildDecision{}, err
		}
		report.FileDecisions[f.Path] = fd
		if fd.Outcome == domain.OutcomeAnalyzeFile {
			anyChildAnalyze = true
		}
		fileModTimes = append(fileModTimes, f.ModTime)
	}

	anySubdirCreate := false
	var subdirKBModTimes []time.Time
	for _, sub := range d.Subdirs {
		subDecision, err := decideDirectory(sub, mapper, mode, affected, report, now)
		if err != nil {
			return domain.RebuildDecision{}, err
		}
		if subDecision.Outcome == domain.OutcomeCreateDirectoryKB {
			anySubdirCreate = true
		}
		if kbPath, err := mapper.KnowledgePathFor(sub.Path); err == nil {
			if mt, ok := statModTime(string(kbPath)); ok {
				subdirKBModTimes = append(subdirKBModTimes, mt)
			}
		}
	}

	decision, err := decideSelf(d, mapper, mode, affected, anyChildAnalyze, anySubdirCreate, fileModTimes, subdirKBModTimes, now)
	if err != nil {
		return domain.RebuildDecision{}, err
	}
	report.DirectoryDecisions[d.Path] = decision
	return decision, nil
}

func decideFile(f domain.FileContext, mapper *pathmap.Mapper, mode config.IndexingMode, now time.Time) (domain.RebuildDecision, error) {
	if mode == config.Full {
		return domain.RebuildDecision{Target: f.Path, Outcome: domain.OutcomeAnalyzeFile, Reason: domain.ReasonNewSource, Timestamp: now}, nil
	}

	analysisPath, err := mapper.AnalysisPathFor(f.Path)
	if err != nil {
		return domain.RebuildDecision{}, &domain.DecisionError{Reason: err.Error()}
	}

	fresh, reason := cache.IsFresh(string(analysisPath), f.ModTime)
	if fresh {
		return domain.RebuildDecision{Target: f.Path, Outcome: domain.OutcomeSkipFileCached, Reason: domain.ReasonCacheFresh, Timestamp: now}, nil
	}

	rebuildReason := domain.ReasonSourceNewerThanCache
	if reason == "missing_cache" {
		rebuildReason = domain.ReasonMissingCache
	}
	return domain.RebuildDecision{Target: f.Path, Outcome: domain.OutcomeAnalyzeFile, Reason: rebuildReason, Timestamp: now}, nil
}

func decideSelf(d domain.DirectoryContext, mapper *pathmap.Mapper, mode config.IndexingMode, affected map[domain.SourcePath]bool, anyChildAnalyze, anySubdirCreate bool, fileModTimes, subdirKBModTimes []time.Time, now time.Time) (domain.RebuildDecision, error) {
	if !d.HasProcessableContent() {
		return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeSkipDirectoryFresh, Reason: domain.ReasonEmptyDirectory, Timestamp: now}, nil
	}

	if mode == config.Full || mode == config.FullKBRebuild {
		return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeCreateDirectoryKB, Reason: domain.ReasonForcedFullRebuild, Timestamp: now}, nil
	}

	if anyChildAnalyze || anySubdirCreate {
		return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeCreateDirectoryKB, Reason: domain.ReasonCascadedFromChild, Timestamp: now}, nil
	}

	if affected[domain.SourcePath(filepath.Clean(string(d.Path)))] {
		return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeCreateDirectoryKB, Reason: domain.ReasonSelfStale, Timestamp: now}, nil
	}

	kbPath, err := mapper.KnowledgePathFor(d.Path)
	if err != nil {
		return domain.RebuildDecision{}, &domain.DecisionError{Reason: err.Error()}
	}

	stale, reason := cache.IsKnowledgeFileStale(string(kbPath), fileModTimes, subdirKBModTimes)
	if !stale {
		return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeSkipDirectoryFresh, Reason: domain.ReasonFreshAgainstConstituents, Timestamp: now}, nil
	}

	rebuildReason := domain.ReasonSelfStale
	if reason == "missing_cache" && d.IsHandlerRoot {
		rebuildReason = domain.ReasonHandlerRoot
	}
	return domain.RebuildDecision{Target: d.Path, Outcome: domain.OutcomeCreateDirectoryKB, Reason: rebuildReason, Timestamp: now}, nil
}

func statModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

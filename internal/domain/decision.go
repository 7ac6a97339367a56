package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// RebuildOutcome is the decision made for a single file or directory.
type RebuildOutcome string

const (
	OutcomeAnalyzeFile        RebuildOutcome = "analyze_file"
	OutcomeSkipFileCached     RebuildOutcome = "skip_file_cached"
	OutcomeCreateDirectoryKB  RebuildOutcome = "create_directory_kb"
	OutcomeSkipDirectoryFresh RebuildOutcome = "skip_directory_fresh"
)

// RebuildReason explains why an outcome was chosen.
type RebuildReason string

const (
	ReasonNewSource                RebuildReason = "new_source"
	ReasonSourceNewerThanCache     RebuildReason = "source_newer_than_cache"
	ReasonMissingCache             RebuildReason = "missing_cache"
	ReasonCacheFresh               RebuildReason = "cache_fresh"
	ReasonCascadedFromChild        RebuildReason = "cascaded_from_child"
	ReasonHandlerRoot              RebuildReason = "handler_root"
	ReasonFreshAgainstConstituents RebuildReason = "fresh_against_constituents"
	ReasonSelfStale                RebuildReason = "self_stale"
	ReasonForcedFullRebuild        RebuildReason = "forced_full_rebuild"
	ReasonEmptyDirectory           RebuildReason = "empty_directory"
)

// RebuildDecision is the outcome of the Rebuild Decision Engine for a
// single file or directory target.
type RebuildDecision struct {
	Target    SourcePath
	Outcome   RebuildOutcome
	Reason    RebuildReason
	Timestamp time.Time
}

// DeletionKind categorizes an orphaned output artifact.
type DeletionKind string

const (
	KindOrphanedAnalysis  DeletionKind = "orphaned_analysis"
	KindOrphanedKnowledge DeletionKind = "orphaned_knowledge"
	KindOrphanedDirectory DeletionKind = "orphaned_directory"
)

// DeletionDecision marks an output artifact with no corresponding source.
type DeletionDecision struct {
	Target         string
	Kind           DeletionKind
	IsSafeToDelete bool
}

// DecisionReport aggregates every decision made for a single run,
// including orphan deletions folded in after DetectOrphans runs. It must
// be internally consistent: see Validate.
type DecisionReport struct {
	FileDecisions      map[SourcePath]RebuildDecision
	DirectoryDecisions map[SourcePath]RebuildDecision
	Deletions          []DeletionDecision
}

// NewDecisionReport returns an empty, writable report.
func NewDecisionReport() *DecisionReport {
	return &DecisionReport{
		FileDecisions:      make(map[SourcePath]RebuildDecision),
		DirectoryDecisions: make(map[SourcePath]RebuildDecision),
	}
}

// reasonsImplyingSelfStale are the directory-decision reasons under which
// OutcomeCreateDirectoryKB can be justified without any child or subdir
// rebuild: the directory's own knowledge file is stale against its
// constituents on its own terms.
var reasonsImplyingSelfStale = map[RebuildReason]bool{
	ReasonSelfStale:         true,
	ReasonHandlerRoot:       true,
	ReasonForcedFullRebuild: true,
}

// Validate checks that every OutcomeCreateDirectoryKB decision in the
// report is justified by at least one of the three conditions named in
// its own Reason: a child file decision to AnalyzeFile, a subdir decision
// to CreateDirectoryKB, or a reason that is itself a self-staleness
// verdict.
func (r *DecisionReport) Validate() error {
	for dir, dd := range r.DirectoryDecisions {
		if dd.Outcome != OutcomeCreateDirectoryKB {
			continue
		}
		if reasonsImplyingSelfStale[dd.Reason] {
			continue
		}

		justified := false
		for target, fd := range r.FileDecisions {
			if filepath.Dir(string(target)) == string(dir) && fd.Outcome == OutcomeAnalyzeFile {
				justified = true
				break
			}
		}
		if !justified {
			for target, sd := range r.DirectoryDecisions {
				if target == dir {
					continue
				}
				if filepath.Dir(string(target)) == string(dir) && sd.Outcome == OutcomeCreateDirectoryKB {
					justified = true
					break
				}
			}
		}
		if !justified {
			return &DecisionError{Reason: fmt.Sprintf(
				"directory %s decided CreateDirectoryKB (reason %s) with no analyzed child file, no created subdir, and no self-stale reason", dir, dd.Reason)}
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/decision"
	"github.com/kbforge/kbforge/internal/discovery"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/executor"
	"github.com/kbforge/kbforge/internal/humanize"
	"github.com/kbforge/kbforge/internal/plan"
)

var (
	flagHandler     string
	flagMode        string
	flagConcurrency int
	flagNoProgress  bool
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run <root>",
		Short: "Discover, decide, plan, and execute a rebuild of the knowledge base rooted at <root>",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&flagHandler, "handler", string(config.HandlerProjectBase), "handler type: project-base, git-clones, pdf-knowledge")
	runCmd.Flags().StringVar(&flagMode, "mode", "", "override the configured indexing mode: incremental, full_kb_rebuild, full")
	runCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "max concurrent tasks (0 uses file_processing.max_concurrent_operations)")
	runCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "disable the interactive progress view; print a summary only")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	root := args[0]
	handler := config.HandlerType(flagHandler)

	logger, err := newLogger()
	if err != nil {
		return classify(fmt.Errorf("build logger: %w", err))
	}
	defer logger.Sync()

	cfg, mapper, err := loadEngineConfig(root, handler)
	if err != nil {
		return classify(err)
	}

	mode := cfg.ChangeDetection.IndexingMode
	if flagMode != "" {
		mode = config.IndexingMode(flagMode)
	}

	discovered, err := discovery.Walk(mapper.SourceRoot(), cfg, logger)
	if err != nil {
		return classify(err)
	}

	deletions, err := decision.DetectOrphans(discovered, mapper)
	if err != nil {
		return classify(err)
	}

	report, err := decision.Decide(discovered, mapper, mode, deletions)
	if err != nil {
		return classify(err)
	}

	execPlan, err := plan.Generate(report, discovered, mapper)
	if err != nil {
		return classify(err)
	}

	concurrency := flagConcurrency
	if concurrency <= 0 {
		concurrency = cfg.FileProcessing.MaxConcurrentOperations
	}

	adapter := buildAdapter(cfg, logger)
	handlers := executor.BuildHandlers(executor.Wiring{Mapper: mapper, Adapter: adapter, Config: cfg})

	progressCh := make(chan executor.ProgressEvent, 64)
	eng := executor.New(handlers, concurrency, cfg.ErrorHandling.ContinueOnFileErrors, logger, progressCh)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var viewErr error
	viewDone := make(chan struct{})
	if flagNoProgress || !isTerminal(os.Stdout) {
		go func() {
			defer close(viewDone)
			for range progressCh {
			}
		}()
	} else {
		go func() {
			defer close(viewDone)
			viewErr = runProgressView(ctx, progressCh, len(execPlan.Tasks))
		}()
	}

	results, runErr := eng.Run(ctx, execPlan)
	close(progressCh)
	<-viewDone
	if viewErr != nil {
		logger.Warn("progress view exited with an error", zap.Error(viewErr))
	}

	printSummary(results)

	if runErr != nil {
		return classify(&exitError{code: 3, err: runErr})
	}
	if len(results.Failed) > 0 || len(results.NonCompliant) > 0 {
		return &exitError{code: 2, err: fmt.Errorf("completed with %d failure(s), %d non-compliant", len(results.Failed), len(results.NonCompliant))}
	}
	return nil
}

func printSummary(results *domain.ExecutionResults) {
	if results == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "kbforge: %s completed in %s (%s analyzed, %s summarized)\n",
		humanize.Count(len(results.Completed), "task"),
		humanize.Duration(results.Duration),
		humanize.Count(results.FilesProcessed, "file"),
		humanize.Count(results.DirsProcessed, "directory"),
	)
	if results.FilesDeleted > 0 {
		fmt.Fprintf(os.Stderr, "kbforge: %s removed\n", humanize.Count(results.FilesDeleted, "orphaned artifact"))
	}
	if results.LLMCallsMade > 0 {
		fmt.Fprintf(os.Stderr, "kbforge: %s\n", humanize.Count(results.LLMCallsMade, "LLM call"))
	}
	if len(results.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "kbforge: %s skipped (dependency failed)\n", humanize.Count(len(results.Skipped), "task"))
	}
	for _, f := range results.Failed {
		fmt.Fprintf(os.Stderr, "kbforge: FAILED %s %s: %v\n", f.Type, f.Target, f.Err)
	}
	for _, nc := range results.NonCompliant {
		fmt.Fprintf(os.Stderr, "kbforge: NON-COMPLIANT %s %s\n", nc.Type, nc.Target)
	}
}

func isTerminal(f *os.File) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

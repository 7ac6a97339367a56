package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/decision"
	"github.com/kbforge/kbforge/internal/discovery"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/executor"
	"github.com/kbforge/kbforge/internal/humanize"
	"github.com/kbforge/kbforge/internal/plan"
)

func init() {
	planCmd := &cobra.Command{
		Use:   "plan <root>",
		Short: "Print the wave decomposition kbforge run would execute, without running any task",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	planCmd.Flags().StringVar(&flagHandler, "handler", string(config.HandlerProjectBase), "handler type: project-base, git-clones, pdf-knowledge")
	planCmd.Flags().StringVar(&flagMode, "mode", "", "override the configured indexing mode: incremental, full_kb_rebuild, full")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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

	preview := executor.BuildPreview(execPlan)
	printPreview(preview)
	return nil
}

func printPreview(p executor.Preview) {
	fmt.Fprintf(os.Stdout, "%d wave(s), %s estimated, %s\n",
		len(p.Waves), humanize.Duration(p.EstimatedDuration), humanize.Count(p.ExpectedLLMCalls, "LLM call"))

	types := make([]domain.TaskType, 0, len(p.CountsByType))
	for t := range p.CountsByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Fprintf(os.Stdout, "  %-28s %s\n", t, humanize.Count(p.CountsByType[t], "task"))
	}

	for i, wave := range p.Waves {
		fmt.Fprintf(os.Stdout, "\nwave %d (%s):\n", i+1, humanize.Count(len(wave), "task"))
		for _, t := range wave {
			fmt.Fprintf(os.Stdout, "  [%s] %s %s\n", t.ID, t.Type, t.Target)
		}
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour/v2"
	"github.com/spf13/cobra"

	"github.com/kbforge/kbforge/internal/cache"
	"github.com/kbforge/kbforge/internal/config"
	"github.com/kbforge/kbforge/internal/domain"
	"github.com/kbforge/kbforge/internal/humanize"
)

var flagPreviewRoot string

func init() {
	previewCmd := &cobra.Command{
		Use:   "preview-kb <path>",
		Short: "Render a cached analysis artifact or knowledge file to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreviewKB,
	}
	previewCmd.Flags().StringVar(&flagPreviewRoot, "root", ".", "source root the path is relative to")
	previewCmd.Flags().StringVar(&flagHandler, "handler", string(config.HandlerProjectBase), "handler type: project-base, git-clones, pdf-knowledge")
	rootCmd.AddCommand(previewCmd)
}

func runPreviewKB(cmd *cobra.Command, args []string) error {
	target := args[0]
	handler := config.HandlerType(flagHandler)

	_, mapper, err := loadEngineConfig(flagPreviewRoot, handler)
	if err != nil {
		return classify(err)
	}

	info, err := os.Stat(target)
	if err != nil {
		absRoot, absErr := filepath.Abs(flagPreviewRoot)
		if absErr != nil {
			return classify(err)
		}
		target = filepath.Join(absRoot, target)
		info, err = os.Stat(target)
		if err != nil {
			return classify(fmt.Errorf("stat %s: %w", target, err))
		}
	}

	var artifactPath string
	if info.IsDir() {
		kbPath, err := mapper.KnowledgePathFor(domain.SourcePath(target))
		if err != nil {
			return classify(err)
		}
		artifactPath = string(kbPath)
	} else {
		analysisPath, err := mapper.AnalysisPathFor(domain.SourcePath(target))
		if err != nil {
			return classify(err)
		}
		artifactPath = string(analysisPath)
	}

	body, found, err := cache.Read(artifactPath)
	if err != nil {
		return classify(err)
	}
	if !found {
		return classify(fmt.Errorf("no cached artifact at %s (run kbforge run first)", artifactPath))
	}
	if artifactInfo, statErr := os.Stat(artifactPath); statErr == nil {
		fmt.Fprintf(os.Stderr, "%s (%s)\n\n", artifactPath, humanize.Bytes(artifactInfo.Size()))
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return classify(fmt.Errorf("build markdown renderer: %w", err))
	}

	rendered, err := renderer.Render(body)
	if err != nil {
		fmt.Fprintln(os.Stdout, body)
		return nil
	}
	fmt.Fprint(os.Stdout, rendered)
	return nil
}

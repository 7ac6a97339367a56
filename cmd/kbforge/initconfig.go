package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kbforge/kbforge/internal/config"
)

func init() {
	initCmd := &cobra.Command{
		Use:   "init-config <handler>",
		Short: "Write the default configuration document for a handler type",
		Args:  cobra.ExactArgs(1),
		RunE:  runInitConfig,
	}
	initCmd.Flags().StringVar(&flagPreviewRoot, "root", ".", "directory the config document is written into")
	rootCmd.AddCommand(initCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	handler := config.HandlerType(args[0])
	switch handler {
	case config.HandlerProjectBase, config.HandlerGitClones, config.HandlerPDFKnowledge:
	default:
		return classify(fmt.Errorf("unknown handler %q: want project-base, git-clones, or pdf-knowledge", handler))
	}

	absRoot, err := filepath.Abs(flagPreviewRoot)
	if err != nil {
		return classify(err)
	}

	mgr := config.NewManager(absRoot, handler)
	cfg := config.DefaultConfig(handler)
	if err := mgr.Save(cfg); err != nil {
		return classify(err)
	}

	fmt.Fprintf(os.Stdout, "wrote default %s config under %s\n", handler, absRoot)
	return nil
}

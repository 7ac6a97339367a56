package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "kbforge",
	Short: "Incrementally rebuild a hierarchical knowledge base from a source tree",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the selected subcommand and maps its outcome onto the
// documented exit codes: 0 clean, 1 plan validation error, 2 completed
// with failures, 3 aborted, 4 configuration error.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if asExitError(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		return ee.code
	}

	fmt.Fprintln(os.Stderr, err)
	return 1
}

// Command kbforge is the thin process entry point for the knowledge-base
// rebuild engine: it wires configuration, discovery, decision, planning,
// and execution together behind a handful of cobra subcommands. None of
// the engineering lives here; every subcommand is a few lines of glue
// over internal/*.
package main

import "os"

func main() {
	os.Exit(Execute())
}

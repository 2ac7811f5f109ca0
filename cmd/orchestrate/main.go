// Command orchestrate loads a deployment config and runs a composed
// program against it (spec.md §6). Flags override environment variables
// override the config file's own defaults, the layering the teacher's
// CLI demos and the pack's other cobra+viper tools both use.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodeFor(err)
	}
	return exitOK
}

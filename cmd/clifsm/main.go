// Command clifsm is a thin wiring entry point over pkg/fsm: it loads a
// template in one of the three supported dialects, optionally segments the
// input into per-command blocks first, and prints either the parsed
// records or a full debug report.
package main

import (
	"clifsm/pkg/lib"

	"github.com/spf13/cobra"
)

const appName = "clifsm"

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Parse CLI transcripts against a declarative FSM template",
	}

	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newDebugCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		lib.Exit(err)
	}
}

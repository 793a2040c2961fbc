// Package cli wires configuration, model, tools, and console into the
// interactive agent command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "testgen-agent",
	Short: "Interactive agent that generates automotive function test cases",
	Long: `testgen-agent is an LLM-driven CLI agent. It reads function definition
JSON files, extracts covered signal combinations, generates new combinations
with coverage strategies, infers expected outputs with the model, and exports
complete test cases.

Run without arguments to enter interactive mode.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("testgen-agent %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

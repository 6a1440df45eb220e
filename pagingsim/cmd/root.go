// Package cmd provides the command-line interface of pagingsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagingsim",
	Short: "pagingsim simulates paged virtual memory with swapping.",
	Long: `pagingsim runs small memory programs as concurrent processes ` +
		`on top of a simulated RAM and swap, with per-process page tables ` +
		`and FIFO page replacement.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

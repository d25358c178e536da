// Package cmd provides the command-line interface for nachosvmctl.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nachosvmctl",
	Short: "nachosvmctl inspects NOFF executables and boot-time memory configuration.",
	Long: `nachosvmctl inspects NOFF executables and boot-time memory ` +
		`configuration. Currently it supports dumping a NOFF header and ` +
		`printing the boot configuration that LoadBootConfig would produce.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

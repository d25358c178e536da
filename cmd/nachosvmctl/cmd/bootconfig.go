package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nachosvm/vm/kernel"
)

var envPath string

var bootConfigCmd = &cobra.Command{
	Use:   "boot",
	Short: "Print the boot configuration the kernel would load.",
	Long:  "`boot [--env path]` prints the replacement policy and frame count LoadBootConfig would produce.",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := kernel.LoadBootConfig(envPath)
		fmt.Printf("policy:        %s\n", cfg.Policy)
		fmt.Printf("numPhysFrames: %d\n", cfg.NumPhysFrames)
	},
}

func init() {
	bootConfigCmd.Flags().StringVar(&envPath, "env", "", "path to a .env file with NACHOSVM_POLICY / NACHOSVM_NUM_FRAMES overrides")
	rootCmd.AddCommand(bootConfigCmd)
}

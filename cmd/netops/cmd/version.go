package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/netops/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("netops %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"fmt"

	"github.com/crytic/movedusa/version"
	"github.com/spf13/cobra"
)

// versionCmd prints build information: semantic version, git commit, git commit timestamp, and Go version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetInfo()
		fmt.Print(info.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

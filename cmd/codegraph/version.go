package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the codegraph version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codegraph %s (build %s, commit %s)\n", Version, BuildTime, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

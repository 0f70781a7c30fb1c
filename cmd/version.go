package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gramfix/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{"config": "none"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gramfix %s\n", version.GitRelease)
		fmt.Fprintf(cmd.OutOrStdout(), "  Go:     %s\n", version.GoInfo)
		fmt.Fprintf(cmd.OutOrStdout(), "  Commit: %s\n", version.GitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "  Date:   %s\n", version.GitCommitDate)
	},
}

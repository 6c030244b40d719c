package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ferryvox %s\n  Commit:  %s\n  Built:   %s\n", Version, GitCommit, BuildTime)
			return err
		},
	}
}

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "printnearby %s\n", version)
		if commit != "unknown" {
			fmt.Fprintf(out, "Git commit: %s\n", commit)
		}
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	},
}

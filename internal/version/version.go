// Package version exposes build metadata injected through -ldflags.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version of the build
	Version = "0.1.0"
	// Commit is the short git SHA of the build
	Commit = "none"
	// BuildTime is the UTC build timestamp
	BuildTime = "unknown"
)

// Short returns only the semantic version string
func Short() string {
	return Version
}

// Full returns the version with commit and build time
func Full() string {
	return fmt.Sprintf("fence-server %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// AttachCommand adds a `version` subcommand to root
func AttachCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}

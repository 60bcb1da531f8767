package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgwrap/pgwrap/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of pgwrap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgwrap v%s@%s %s %s\n", version.App(), GitCommit, version.Platform(), BuildDate)
	},
}

// Build-time variables set via ldflags
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

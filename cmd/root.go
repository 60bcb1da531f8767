package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgwrap/pgwrap/cmd/generate"
	"github.com/pgwrap/pgwrap/internal/logger"
	"github.com/pgwrap/pgwrap/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgwrap",
	Short: "Typed Go wrappers for PostgreSQL functions",
	Long: fmt.Sprintf(`pgwrap generates typed Go wrappers for PostgreSQL functions and
procedures from SQL declaration files.

Version: %s@%s %s %s

Commands:
  generate  Generate wrapper code from SQL files
  version   Show version information

Use "pgwrap [command] --help" for more information about a command.`,
		version.App(), GitCommit, version.Platform(), BuildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(generate.GenerateCmd)
	RootCmd.AddCommand(VersionCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger.SetGlobal(slog.New(handler), Debug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

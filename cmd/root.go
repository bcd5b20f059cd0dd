/*
Copyright © 2026 The tmd Authors
*/

// root.go defines the root command and CLI execution entry point.
//
// Every subcommand operates on a container file (.tmd or .tmdz) or an
// unpacked workspace directory; there is no ambient store to discover, so
// the root command only validates global flags before dispatch.

package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "tmd",
	Short: "Self-describing Markdown document containers",
	Long: `tmd bundles a Markdown body, binary attachments, and an embedded SQLite
database into a single portable file. The .tmd format doubles as plain
Markdown and as a ZIP archive; .tmdz is the archive alone.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if output != "" && !slices.Contains(validOutputFormats, output) {
			return fmt.Errorf("invalid output format: %s (valid: %v)", output, validOutputFormats)
		}
		return nil
	},
}

// Execute runs the root command and handles process lifecycle.
// Opens audit logging, executes the command, and exits 1 on error.
func Execute() {
	// Initialise audit logger (warn if it fails, but continue)
	if err := log.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
	}
	defer log.Close()

	if wd, err := os.Getwd(); err == nil {
		log.SetWorkdir(wd)
	}

	if err := rootCmd.Execute(); err != nil {
		log.Close()
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

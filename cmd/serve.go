/*
Copyright © 2026 The tmd Authors
*/

// serve.go starts the MCP server for LLM integration.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a container over MCP (stdio)",
	Long: `Start a Model Context Protocol server exposing the container to LLM
clients: the Markdown body and manifest as resources, plus tools for
listing attachments, reading attachment bytes, running read-only SQL,
and re-validating the file. Logs go to stderr; stdout carries the
protocol.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := requireFile(args[0]); err != nil {
			return err
		}
		return mcp.Serve(args[0])
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

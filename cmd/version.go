/*
Copyright © 2026 The tmd Authors
*/

// version.go prints build information.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		info := version.Get()
		if JSON() {
			return PrintJSON(info)
		}
		fmt.Fprint(out, info.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

/*
Copyright © 2026 The tmd Authors
*/

// cat.go implements rendered and raw body output.

package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/config"
	"github.com/tanu-md/tmd/internal/log"
)

var catRaw bool

var catCmd = &cobra.Command{
	Use:   "cat <file|dir>",
	Short: "Print the document's Markdown body",
	Long: `Print the Markdown body. By default the body is rendered for the
terminal using the configured glamour style; --raw prints the bytes
unmodified, which is what you want when piping.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		target := args[0]

		var err error
		l := log.Event("cli:cat", "read").File(target)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		if JSON() {
			return PrintJSON(map[string]any{"markdown": doc.Markdown, "manifest": doc.Manifest})
		}
		if catRaw {
			fmt.Fprint(out, doc.Markdown)
			return nil
		}

		style := "auto"
		if cfg, cfgErr := config.Load(); cfgErr == nil {
			style = cfg.Style()
		}
		rendered, renderErr := glamour.Render(doc.Markdown, style)
		if renderErr != nil {
			// Fall back to raw output rather than failing the read.
			fmt.Fprint(out, doc.Markdown)
			return nil
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	catCmd.Flags().BoolVar(&catRaw, "raw", false, "Print the body without terminal rendering")
	rootCmd.AddCommand(catCmd)
}

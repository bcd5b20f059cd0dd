/*
Copyright © 2026 The tmd Authors
*/

// new.go implements container creation.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/config"
	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/log"
)

var (
	newTitle string
	newFrom  string
)

var newCmd = &cobra.Command{
	Use:   "new <file.tmd|file.tmdz>",
	Short: "Create a new document container",
	Long: `Create a new container with a fresh document id, an empty database, and
no attachments. The body comes from --from (a Markdown file, or "-" for
stdin); without it the body starts empty. The output format follows the
file extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		var err error
		l := log.Event("cli:new", "write").File(target)
		defer func() { l.Write(err) }()

		if !force {
			if _, statErr := os.Stat(target); statErr == nil {
				err = fmt.Errorf("%s already exists (use --force to overwrite)", target)
				return err
			}
		}

		markdown := ""
		switch newFrom {
		case "":
		case "-":
			data, readErr := io.ReadAll(cmd.InOrStdin())
			if readErr != nil {
				err = fmt.Errorf("read stdin: %w", readErr)
				return err
			}
			markdown = string(data)
		default:
			data, readErr := os.ReadFile(newFrom)
			if readErr != nil {
				err = fmt.Errorf("read %s: %w", newFrom, readErr)
				return err
			}
			markdown = string(data)
		}

		doc, err := document.New(markdown)
		if err != nil {
			return err
		}
		defer doc.Close()

		doc.Manifest.Title = newTitle
		if cfg, cfgErr := config.Load(); cfgErr == nil {
			if a := cfg.AuthorString(); a != "" {
				doc.Manifest.Authors = []string{a}
				l.Author(a)
			}
		}

		if err = codec.WriteFile(target, doc, formatForPath(target), codec.DefaultWriteMode()); err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(map[string]any{"file": target, "doc_id": doc.Manifest.DocID})
		}
		fmt.Fprintf(out, "created %s (doc_id %s)\n", target, doc.Manifest.DocID)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newTitle, "title", "", "Document title")
	newCmd.Flags().StringVar(&newFrom, "from", "", "Markdown source file (use - for stdin)")
	rootCmd.AddCommand(newCmd)
}

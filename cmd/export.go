/*
Copyright © 2026 The tmd Authors
*/

// export.go implements HTML export.

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/log"
	"github.com/tanu-md/tmd/internal/render"
)

var exportSelfContained bool

var exportHTMLCmd = &cobra.Command{
	Use:   "export-html <file|dir> [out.html]",
	Short: "Render the document as an HTML page",
	Long: `Render the Markdown body (GitHub-flavoured tables, task lists, and
strikethrough) plus an attachment appendix as a complete HTML page.
With --self-contained, attachment references become base64 data URIs so
the page needs no files next to it. The output path defaults to the
container name with an .html extension.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		target := args[0]

		dest := ""
		if len(args) == 2 {
			dest = args[1]
		} else {
			base := strings.TrimSuffix(strings.TrimSuffix(target, ".tmdz"), ".tmd")
			dest = base + ".html"
		}

		var err error
		l := log.Event("cli:export-html", "export").File(target).Detail("dest", dest)
		defer func() { l.Write(err) }()

		if !force {
			if _, statErr := os.Stat(dest); statErr == nil {
				err = fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				return err
			}
		}

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		page, err := render.HTML(doc, render.Options{SelfContained: exportSelfContained})
		if err != nil {
			return err
		}
		if err = os.WriteFile(dest, page, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(out, "wrote %s\n", dest)
		return nil
	},
}

func init() {
	exportHTMLCmd.Flags().BoolVar(&exportSelfContained, "self-contained", false, "Inline attachments as data URIs")
	rootCmd.AddCommand(exportHTMLCmd)
}

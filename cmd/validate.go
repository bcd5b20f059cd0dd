/*
Copyright © 2026 The tmd Authors
*/

// validate.go implements structural validation of container files.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/log"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate container structure and attachment digests",
	Long: `Decode each container with full verification: trailer bounds, required
archive entries, undeclared entry rejection, attachment lengths and
SHA-256 digests, and the embedded database header. Exits non-zero on the
first invalid file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		for _, target := range args {
			var err error
			l := log.Event("cli:validate", "validate").File(target)

			if err = requireFile(target); err != nil {
				l.Write(err)
				return err
			}

			doc, err := codec.ReadFile(target, codec.FormatAuto, codec.DefaultReadMode())
			l.Write(err)
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}

			if JSON() {
				if err := PrintJSON(map[string]any{
					"file":        target,
					"valid":       true,
					"doc_id":      doc.Manifest.DocID,
					"tmd_version": doc.Manifest.TmdVersion.String(),
					"attachments": doc.Attachments.Len(),
				}); err != nil {
					doc.Close()
					return err
				}
			} else {
				fmt.Fprintf(out, "%s: ok (doc_id %s, %d attachments)\n",
					target, doc.Manifest.DocID, doc.Attachments.Len())
			}
			doc.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

/*
Copyright © 2026 The tmd Authors
*/

// diff.go implements container comparison.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/diff"
	"github.com/tanu-md/tmd/internal/log"
)

var diffColour bool

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two containers",
	Long: `Show a line diff of the Markdown bodies plus a summary of attachment
additions, removals, and content changes, and any database schema
version change.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		oldTarget, newTarget := args[0], args[1]

		var err error
		l := log.Event("cli:diff", "read").File(oldTarget).Detail("other", newTarget)
		defer func() { l.Write(err) }()

		oldDoc, err := loadDocument(oldTarget)
		if err != nil {
			return err
		}
		defer oldDoc.Close()

		newDoc, err := loadDocument(newTarget)
		if err != nil {
			return err
		}
		defer newDoc.Close()

		r := diff.Documents(oldDoc, newDoc, oldTarget, newTarget)
		if JSON() {
			return PrintJSON(map[string]any{
				"old":     r.Old,
				"new":     r.New,
				"diff":    r.Diff,
				"added":   r.Added,
				"removed": r.Removed,
				"changed": r.Changed,
			})
		}
		fmt.Fprint(out, r.Format(diffColour))
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&diffColour, "colour", false, "Colourise diff output")
	rootCmd.AddCommand(diffCmd)
}

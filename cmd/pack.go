/*
Copyright © 2026 The tmd Authors
*/

// pack.go implements workspace directory <-> container conversion.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/log"
	"github.com/tanu-md/tmd/internal/workspace"
)

var packCmd = &cobra.Command{
	Use:   "pack <dir> <file.tmd|file.tmdz>",
	Short: "Pack a workspace directory into a container",
	Long: `Read index.md, manifest.json, attachments.json, attachment files, and
db/main.sqlite3 from a directory and write them as a single container.
Attachment bytes are verified against the declared metadata before packing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		dir, target := args[0], args[1]

		var err error
		l := log.Event("cli:pack", "write").File(target).Detail("dir", dir)
		defer func() { l.Write(err) }()

		if !force {
			if _, statErr := os.Stat(target); statErr == nil {
				err = fmt.Errorf("%s already exists (use --force to overwrite)", target)
				return err
			}
		}

		doc, err := workspace.Load(dir)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = codec.WriteFile(target, doc, formatForPath(target), codec.DefaultWriteMode()); err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(map[string]any{"file": target, "attachments": doc.Attachments.Len()})
		}
		fmt.Fprintf(out, "packed %s -> %s (%d attachments)\n", dir, target, doc.Attachments.Len())
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <file> <dir>",
	Short: "Unpack a container into a workspace directory",
	Long: `Extract the Markdown body, manifest, attachment metadata, attachment
files, and embedded database into a directory for editing with ordinary
tools. Pack the directory again with "tmd pack".`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, dir := args[0], args[1]

		var err error
		l := log.Event("cli:unpack", "write").File(target).Detail("dir", dir)
		defer func() { l.Write(err) }()

		if err = requireFile(target); err != nil {
			return err
		}
		if !force {
			if entries, readErr := os.ReadDir(dir); readErr == nil && len(entries) > 0 {
				err = fmt.Errorf("%s is not empty (use --force to overwrite)", dir)
				return err
			}
		}

		doc, err := codec.ReadFile(target, codec.FormatAuto, readMode())
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = workspace.Save(doc, dir); err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(map[string]any{"dir": dir, "attachments": doc.Attachments.Len()})
		}
		fmt.Fprintf(out, "unpacked %s -> %s\n", target, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
}

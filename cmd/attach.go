/*
Copyright © 2026 The tmd Authors
*/

// attach.go implements the attachment management subcommands.

package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/config"
	"github.com/tanu-md/tmd/internal/log"
)

var (
	attachPath string
	attachMime string
	attachOut  string
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Manage attachments",
}

var attachAddCmd = &cobra.Command{
	Use:   "add <file|dir> <source>",
	Short: "Add a file as an attachment",
	Long: `Add the source file's bytes as a new attachment. The logical path
defaults to the source's base name; the media type is guessed from the
extension unless --mime is given. Sources larger than the configured
limits.max_attachment are refused.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, source := args[0], args[1]

		var err error
		l := log.Event("cli:attach", "write").File(target).Detail("source", source)
		defer func() { l.Write(err) }()

		data, err := os.ReadFile(source)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if limit := cfg.MaxAttachment(); int64(len(data)) > limit {
			err = fmt.Errorf("%s is %d bytes, over the max_attachment limit of %d bytes", source, len(data), limit)
			return err
		}

		logical := attachPath
		if logical == "" {
			logical = filepath.Base(source)
		}
		mediaType := attachMime
		if mediaType == "" {
			mediaType = mime.TypeByExtension(filepath.Ext(source))
		}
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		id, err := doc.AddAttachment(logical, mediaType, data)
		if err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(map[string]any{"id": id, "path": logical, "mime": mediaType, "length": len(data)})
		}
		fmt.Fprintf(out, "added %s (%s, %d bytes) as %s\n", logical, mediaType, len(data), id)
		return nil
	},
}

var attachLsCmd = &cobra.Command{
	Use:   "ls <file|dir>",
	Short: "List attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		target := args[0]

		var err error
		l := log.Event("cli:attach", "list").File(target)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		metas := doc.Attachments.Metas()
		sort.Slice(metas, func(i, j int) bool { return metas[i].LogicalPath < metas[j].LogicalPath })

		if JSON() {
			return PrintJSON(metas)
		}
		tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tMIME\tLENGTH\tID")
		for _, m := range metas {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.LogicalPath, m.MediaType, m.Length, m.ID)
		}
		return tw.Flush()
	},
}

var attachRmCmd = &cobra.Command{
	Use:   "rm <file|dir> <logical-path>",
	Short: "Remove an attachment",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, logical := args[0], args[1]

		var err error
		l := log.Event("cli:attach", "delete").File(target).Detail("attachment", logical)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		meta, ok := doc.Attachments.MetaByPath(logical)
		if !ok {
			err = fmt.Errorf("no attachment at %q", logical)
			return err
		}
		if err = doc.RemoveAttachment(meta.ID); err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "removed %s\n", logical)
		return nil
	},
}

var attachMvCmd = &cobra.Command{
	Use:   "mv <file|dir> <old-path> <new-path>",
	Short: "Rename an attachment's logical path",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		target, oldPath, newPath := args[0], args[1], args[2]

		var err error
		l := log.Event("cli:attach", "move").File(target).Detail("from", oldPath).Detail("to", newPath)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		meta, ok := doc.Attachments.MetaByPath(oldPath)
		if !ok {
			err = fmt.Errorf("no attachment at %q", oldPath)
			return err
		}
		if err = doc.RenameAttachment(meta.ID, newPath); err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "renamed %s -> %s\n", oldPath, newPath)
		return nil
	},
}

var attachGetCmd = &cobra.Command{
	Use:   "get <file|dir> <logical-path>",
	Short: "Extract an attachment's bytes",
	Long:  `Write the attachment's bytes to --dest, or to its base name in the current directory.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, logical := args[0], args[1]

		var err error
		l := log.Event("cli:attach", "read").File(target).Detail("attachment", logical)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		meta, ok := doc.Attachments.MetaByPath(logical)
		if !ok {
			err = fmt.Errorf("no attachment at %q", logical)
			return err
		}
		data, _ := doc.Attachments.Data(meta.ID)

		dest := attachOut
		if dest == "" {
			dest = filepath.Base(logical)
		}
		if !force {
			if _, statErr := os.Stat(dest); statErr == nil {
				err = fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				return err
			}
		}
		if err = os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(out, "wrote %s (%d bytes)\n", dest, len(data))
		return nil
	},
}

func init() {
	attachAddCmd.Flags().StringVar(&attachPath, "path", "", "Logical path inside the container")
	attachAddCmd.Flags().StringVar(&attachMime, "mime", "", "Media type (guessed from extension if omitted)")
	attachGetCmd.Flags().StringVar(&attachOut, "dest", "", "Destination file")

	attachCmd.AddCommand(attachAddCmd, attachLsCmd, attachRmCmd, attachMvCmd, attachGetCmd)
	rootCmd.AddCommand(attachCmd)
}

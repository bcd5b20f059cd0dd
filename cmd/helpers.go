/*
Copyright © 2026 The tmd Authors
*/

// helpers.go centralises container loading and saving for the subcommands.
//
// A target is either a container file (.tmd/.tmdz, sniffed by content) or an
// unpacked workspace directory. Commands that mutate a document load it,
// apply the change, and write it back in the same form it came from.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/workspace"
)

// readMode derives the decode configuration from global flags.
func readMode() codec.ReadMode {
	mode := codec.DefaultReadMode()
	mode.VerifyHashes = !noVerify
	return mode
}

// formatForPath picks the container format from the file extension.
// Defaults to .tmd for unknown extensions so output is always valid.
func formatForPath(path string) codec.Format {
	if strings.EqualFold(filepath.Ext(path), ".tmdz") {
		return codec.FormatTmdz
	}
	return codec.FormatTmd
}

// loadDocument opens a container file or workspace directory.
func loadDocument(target string) (*document.Document, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return workspace.Load(target)
	}
	return codec.ReadFile(target, codec.FormatAuto, readMode())
}

// saveDocument writes the document back to a container file or workspace
// directory.
func saveDocument(doc *document.Document, target string) error {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return workspace.Save(doc, target)
	}
	return codec.WriteFile(target, doc, formatForPath(target), codec.DefaultWriteMode())
}

// requireFile rejects directory targets for commands that only make sense
// on packed containers.
func requireFile(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a container file", target)
	}
	return nil
}

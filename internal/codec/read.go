// read.go implements the decode path for both container formats.
//
// Decoding is strict: required entries must be present, attachment metadata
// must describe every non-reserved archive entry (undeclared entries are a
// hard failure, a defence against archive-based injection), declared logical
// paths must already be in normal form, and the embedded database must carry
// the SQLite magic header. Attachment lengths are always checked; digests are
// checked when ReadMode.VerifyHashes is set.

package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tanu-md/tmd/internal/attach"
	"github.com/tanu-md/tmd/internal/dbfile"
	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/manifest"
	"github.com/tanu-md/tmd/internal/path"
)

// DecodeTmdz deserialises a plain archive container.
func DecodeTmdz(data []byte, mode ReadMode) (*document.Document, error) {
	return decodeArchive(data, mode)
}

// DecodeTmd deserialises a hybrid container: the buffer is split at the
// offset recorded in the TMD trailer, the archive suffix is decoded, and the
// Markdown prefix replaces the archive's own index.md copy.
func DecodeTmd(data []byte, mode ReadMode) (*document.Document, error) {
	markdown, archive, err := splitTmd(data)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(markdown) {
		return nil, fmt.Errorf("%w: markdown section is not valid UTF-8", ErrFormat)
	}
	doc, err := decodeArchive(archive, mode)
	if err != nil {
		return nil, err
	}
	doc.Markdown = string(markdown)
	return doc, nil
}

func decodeArchive(data []byte, mode ReadMode) (*document.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue // directory entries carry no content
		}
		if _, dup := entries[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate archive entry %q", ErrFormat, f.Name)
		}
		entries[f.Name] = f
	}

	markdownBytes, err := readEntry(entries, entryMarkdown)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(markdownBytes) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrFormat, entryMarkdown)
	}

	manifestBytes, err := readEntry(entries, entryManifest)
	if err != nil {
		return nil, err
	}
	var m manifest.Manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrFormat, entryManifest, err)
	}

	attachmentsBytes, err := readEntry(entries, entryAttachments)
	if err != nil {
		return nil, err
	}
	var am attachmentManifest
	if err := json.Unmarshal(attachmentsBytes, &am); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrFormat, entryAttachments, err)
	}

	// Every non-reserved entry must be declared in attachments.json.
	declared := make(map[string]bool, len(am.Attachments))
	for _, meta := range am.Attachments {
		norm, err := path.Normalise(meta.LogicalPath)
		if err != nil || norm != meta.LogicalPath {
			return nil, fmt.Errorf("%w: attachment path %q is not in normal form", ErrFormat, meta.LogicalPath)
		}
		declared[meta.LogicalPath] = true
	}
	for name := range entries {
		switch name {
		case entryManifest, entryMarkdown, entryAttachments, entryDatabase:
			continue
		}
		if !declared[name] {
			return nil, fmt.Errorf("%w: archive contains undeclared entry %q", ErrFormat, name)
		}
	}

	store := attach.New()
	for _, meta := range am.Attachments {
		entryData, err := readEntry(entries, meta.LogicalPath)
		if err != nil {
			return nil, err
		}
		if err := store.InsertEntry(meta, entryData, mode.VerifyHashes); err != nil {
			return nil, err
		}
	}

	dbBytes, err := readEntry(entries, entryDatabase)
	if err != nil {
		return nil, err
	}
	if len(dbBytes) < len(dbfile.Magic) || string(dbBytes[:len(dbfile.Magic)]) != dbfile.Magic {
		return nil, fmt.Errorf("%w: %s is not a SQLite database", ErrFormat, entryDatabase)
	}
	db, err := dbfile.FromBytes(dbBytes)
	if err != nil {
		return nil, err
	}

	return document.FromParts(string(markdownBytes), m, store, db), nil
}

// readEntry extracts one required archive entry.
func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	f, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing required entry %q", ErrFormat, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %q: %v", ErrFormat, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read entry %q: %v", ErrFormat, name, err)
	}
	return data, nil
}

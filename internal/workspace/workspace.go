// Package workspace reads and writes the unpacked directory form of a
// document: index.md and manifest.json at the root, attachments.json
// alongside them, attachment files at their logical paths, and the embedded
// database under db/main.sqlite3.
//
// The directory form is tooling surface, not a codec format: it exists so
// users can edit a document with ordinary tools and pack it back up. All file
// access goes through os.Root, so even a hand-edited attachments.json cannot
// escape the workspace directory.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tanu-md/tmd/internal/attach"
	"github.com/tanu-md/tmd/internal/dbfile"
	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/manifest"
	"github.com/tanu-md/tmd/internal/path"
)

const (
	markdownName    = "index.md"
	manifestName    = "manifest.json"
	attachmentsName = "attachments.json"
	databaseName    = "db/main.sqlite3"
)

// attachmentManifest mirrors the attachments.json shape used by the codec.
type attachmentManifest struct {
	Attachments []manifest.AttachmentMeta `json:"attachments"`
}

// Load assembles a document from a workspace directory. index.md and
// manifest.json are required; a missing attachments.json means no
// attachments, and a missing database means a fresh empty one. Attachment
// bytes are always verified against their declared length and digest.
func Load(dir string) (*document.Document, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", dir, err)
	}
	defer root.Close()

	markdown, err := readFile(root, markdownName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", markdownName, err)
	}

	manifestJSON, err := readFile(root, manifestName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", manifestName, err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestName, err)
	}

	store := attach.New()
	attachmentsJSON, err := readFile(root, attachmentsName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// no attachments
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", attachmentsName, err)
	default:
		var am attachmentManifest
		if err := json.Unmarshal(attachmentsJSON, &am); err != nil {
			return nil, fmt.Errorf("parse %s: %w", attachmentsName, err)
		}
		for _, meta := range am.Attachments {
			norm, err := path.Normalise(meta.LogicalPath)
			if err != nil || norm != meta.LogicalPath {
				return nil, fmt.Errorf("attachment path %q is not in normal form", meta.LogicalPath)
			}
			data, err := readFile(root, filepath.FromSlash(meta.LogicalPath))
			if err != nil {
				return nil, fmt.Errorf("read attachment %s: %w", meta.LogicalPath, err)
			}
			if err := store.InsertEntry(meta, data, true); err != nil {
				return nil, err
			}
		}
	}

	var db *dbfile.Handle
	dbBytes, err := readFile(root, filepath.FromSlash(databaseName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		db, err = dbfile.NewEmpty()
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", databaseName, err)
	default:
		if len(dbBytes) < len(dbfile.Magic) || string(dbBytes[:len(dbfile.Magic)]) != dbfile.Magic {
			return nil, fmt.Errorf("%s is not a SQLite database", databaseName)
		}
		db, err = dbfile.FromBytes(dbBytes)
		if err != nil {
			return nil, err
		}
	}

	return document.FromParts(string(markdown), m, store, db), nil
}

// Save writes the document's full content into a workspace directory,
// creating it if needed. Existing files are overwritten.
func Save(doc *document.Document, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("open workspace %s: %w", dir, err)
	}
	defer root.Close()

	if err := writeFile(root, markdownName, []byte(doc.Markdown)); err != nil {
		return err
	}

	manifestJSON, err := json.MarshalIndent(doc.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeFile(root, manifestName, append(manifestJSON, '\n')); err != nil {
		return err
	}

	metas := doc.Attachments.Metas()
	sort.Slice(metas, func(i, j int) bool { return metas[i].LogicalPath < metas[j].LogicalPath })
	attachmentsJSON, err := json.MarshalIndent(attachmentManifest{Attachments: metas}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode attachment metadata: %w", err)
	}
	if err := writeFile(root, attachmentsName, append(attachmentsJSON, '\n')); err != nil {
		return err
	}

	for _, meta := range metas {
		data, ok := doc.Attachments.Data(meta.ID)
		if !ok {
			return fmt.Errorf("missing data for attachment %s", meta.ID)
		}
		if err := writeFile(root, filepath.FromSlash(meta.LogicalPath), data); err != nil {
			return fmt.Errorf("write attachment %s: %w", meta.LogicalPath, err)
		}
	}

	dbBytes, err := doc.DB.Bytes()
	if err != nil {
		return err
	}
	if err := writeFile(root, filepath.FromSlash(databaseName), dbBytes); err != nil {
		return err
	}
	return nil
}

// readFile reads one file within the workspace root.
func readFile(root *os.Root, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeFile writes one file within the workspace root, creating parent
// directories as needed.
func writeFile(root *os.Root, name string, data []byte) error {
	if dir := filepath.Dir(name); dir != "." && dir != "" {
		if err := mkdirAll(root, dir); err != nil {
			return err
		}
	}
	f, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// mkdirAll creates a directory and its parents within the workspace root.
func mkdirAll(root *os.Root, dir string) error {
	parts := strings.Split(filepath.Clean(dir), string(filepath.Separator))
	for i := range parts {
		step := filepath.Join(parts[:i+1]...)
		if err := root.Mkdir(step, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create directory %s: %w", step, err)
		}
	}
	return nil
}

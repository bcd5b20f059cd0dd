// Package document defines the Document aggregate: Markdown text, manifest,
// attachment store, and embedded database handle, owned together as one unit
// of work.
//
// A Document is created empty (fresh id, empty store, freshly initialised
// database) or by the codec's read path. All mutation happens in memory;
// nothing is persisted until the codec's write path serialises the whole
// aggregate. Every mutating operation refreshes the manifest's modification
// timestamp.
//
// A Document is not safe for concurrent mutation; callers provide exclusion
// if they share one across goroutines.
package document

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tanu-md/tmd/internal/attach"
	"github.com/tanu-md/tmd/internal/dbfile"
	"github.com/tanu-md/tmd/internal/manifest"
	"github.com/tanu-md/tmd/internal/path"
)

// Document aggregates the parts of a TMD document. It exclusively owns its
// manifest, attachment store, and database handle; nothing is shared between
// two Documents.
type Document struct {
	Markdown    string
	Manifest    manifest.Manifest
	Attachments *attach.Store
	DB          *dbfile.Handle
}

// New creates an in-memory document with the given Markdown body, a fresh
// document id, an empty attachment store, and an empty database.
func New(markdown string) (*Document, error) {
	db, err := dbfile.NewEmpty()
	if err != nil {
		return nil, err
	}
	return &Document{
		Markdown:    markdown,
		Manifest:    manifest.New(),
		Attachments: attach.New(),
		DB:          db,
	}, nil
}

// FromParts assembles a document from decoded components. Used by the codec's
// read path and by workspace loading.
func FromParts(markdown string, m manifest.Manifest, store *attach.Store, db *dbfile.Handle) *Document {
	return &Document{
		Markdown:    markdown,
		Manifest:    m,
		Attachments: store,
		DB:          db,
	}
}

// Close releases the document's database backing file. The document must not
// be used afterwards.
func (d *Document) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Touch updates the manifest's modification timestamp.
func (d *Document) Touch() {
	d.Manifest.Touch()
}

// SetMarkdown replaces the Markdown body.
func (d *Document) SetMarkdown(markdown string) {
	d.Markdown = markdown
	d.Touch()
}

// AddAttachment normalises logicalPath and inserts a new attachment with a
// fresh id, returning the id.
func (d *Document) AddAttachment(logicalPath, mediaType string, data []byte) (uuid.UUID, error) {
	norm, err := path.Normalise(logicalPath)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := d.Attachments.Insert(id, norm, mediaType, data); err != nil {
		return uuid.Nil, err
	}
	d.Touch()
	return id, nil
}

// AddAttachmentStream buffers r in memory and adds it as an attachment.
func (d *Document) AddAttachmentStream(logicalPath, mediaType string, r io.Reader) (uuid.UUID, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return uuid.Nil, fmt.Errorf("read attachment stream: %w", err)
	}
	return d.AddAttachment(logicalPath, mediaType, data)
}

// RemoveAttachment deletes an attachment by id.
func (d *Document) RemoveAttachment(id uuid.UUID) error {
	if err := d.Attachments.Remove(id); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// RenameAttachment moves an attachment to a new logical path.
func (d *Document) RenameAttachment(id uuid.UUID, newPath string) error {
	norm, err := path.Normalise(newPath)
	if err != nil {
		return err
	}
	if err := d.Attachments.Rename(id, norm); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// MutateAttachment grants scoped mutable access to an attachment's bytes;
// length and digest are recomputed when fn returns.
func (d *Document) MutateAttachment(id uuid.UUID, fn func(data []byte) []byte) error {
	if err := d.Attachments.Mutate(id, fn); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// WithRead runs fn against a scoped read connection to the embedded database.
func (d *Document) WithRead(fn func(db *sql.DB) error) error {
	return d.DB.WithRead(fn)
}

// WithWrite runs fn against a scoped write connection to the embedded
// database and refreshes the modification timestamp.
func (d *Document) WithWrite(fn func(db *sql.DB) error) error {
	if err := d.DB.WithWrite(fn); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// ResetDB destructively replaces the embedded database schema and mirrors the
// new schema version into the manifest.
func (d *Document) ResetDB(schemaSQL string, version uint32) error {
	if err := d.DB.Reset(schemaSQL, version); err != nil {
		return err
	}
	d.syncSchemaVersion(version)
	return nil
}

// MigrateDB applies one gated migration step and mirrors the new schema
// version into the manifest.
func (d *Document) MigrateDB(stepSQL string, from, to uint32) error {
	if err := d.DB.Migrate(stepSQL, from, to); err != nil {
		return err
	}
	d.syncSchemaVersion(to)
	return nil
}

// ExportDB copies the embedded database to an external file.
func (d *Document) ExportDB(dst string) error {
	return d.DB.ExportTo(dst)
}

// ImportDB replaces the embedded database with the file at src and refreshes
// the manifest's schema version mirror from the imported file.
func (d *Document) ImportDB(src string) error {
	if err := d.DB.ImportFrom(src); err != nil {
		return err
	}
	v, err := d.DB.UserVersion()
	if err != nil {
		return err
	}
	d.syncSchemaVersion(v)
	return nil
}

func (d *Document) syncSchemaVersion(v uint32) {
	d.Manifest.DBSchemaVersion = &v
	d.Touch()
}

// Clone returns an independent deep copy of the document: manifest, store,
// and database are all duplicated. The clone owns its own backing file and
// must be Closed separately.
func (d *Document) Clone() (*Document, error) {
	db, err := d.DB.Clone()
	if err != nil {
		return nil, err
	}
	return &Document{
		Markdown:    d.Markdown,
		Manifest:    d.Manifest.Clone(),
		Attachments: d.Attachments.Clone(),
		DB:          db,
	}, nil
}

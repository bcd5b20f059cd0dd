// Package attach implements the in-memory attachment store for a document.
//
// The store keeps a primary table keyed by attachment id and a secondary
// unique index keyed by logical path. The two tables always agree: every
// indexed path resolves to a live entry and every entry is indexed under
// exactly one path. All mutating operations preserve this pairing atomically.
//
// Length and digest are derived state. Insert computes them from the supplied
// bytes, and Mutate recomputes them when the mutation callback returns, so a
// caller can never observe metadata that disagrees with the entry's bytes.
package attach

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tanu-md/tmd/internal/manifest"
)

var (
	// ErrNotFound indicates the requested attachment does not exist.
	ErrNotFound = errors.New("attachment not found")
	// ErrAlreadyExists indicates an id or logical path collision on insert or rename.
	ErrAlreadyExists = errors.New("attachment already exists")
	// ErrLengthMismatch indicates supplied bytes disagree with declared length.
	ErrLengthMismatch = errors.New("attachment length mismatch")
	// ErrDigestMismatch indicates supplied bytes disagree with the declared sha256.
	ErrDigestMismatch = errors.New("attachment sha256 mismatch")
)

type entry struct {
	meta manifest.AttachmentMeta
	data []byte
}

// Store owns all attachment entries for one document.
type Store struct {
	entries map[uuid.UUID]*entry
	byPath  map[string]uuid.UUID
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries: make(map[uuid.UUID]*entry),
		byPath:  make(map[string]uuid.UUID),
	}
}

// Len returns the number of attachments.
func (s *Store) Len() int {
	return len(s.entries)
}

// Insert adds a new attachment. The logical path must already be normalised
// (see the path package). Length and digest are computed from data; this is
// the only way to create an entry, so every entry starts consistent.
func (s *Store) Insert(id uuid.UUID, logicalPath, mediaType string, data []byte) error {
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("%w: id %s", ErrAlreadyExists, id)
	}
	if _, ok := s.byPath[logicalPath]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, logicalPath)
	}

	digest := manifest.Sum(data)
	s.byPath[logicalPath] = id
	s.entries[id] = &entry{
		meta: manifest.AttachmentMeta{
			ID:          id,
			LogicalPath: logicalPath,
			MediaType:   mediaType,
			Length:      uint64(len(data)),
			SHA256:      &digest,
		},
		data: data,
	}
	return nil
}

// InsertEntry adds an attachment with caller-supplied metadata. It is used by
// the codec's read path. The declared length must always match the data; the
// declared digest is checked only when verify is set and a digest is present.
func (s *Store) InsertEntry(meta manifest.AttachmentMeta, data []byte, verify bool) error {
	if _, ok := s.entries[meta.ID]; ok {
		return fmt.Errorf("%w: id %s", ErrAlreadyExists, meta.ID)
	}
	if _, ok := s.byPath[meta.LogicalPath]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, meta.LogicalPath)
	}
	if uint64(len(data)) != meta.Length {
		return fmt.Errorf("%w: attachment %q: manifest=%d actual=%d",
			ErrLengthMismatch, meta.LogicalPath, meta.Length, len(data))
	}
	if verify && meta.SHA256 != nil {
		if actual := manifest.Sum(data); actual != *meta.SHA256 {
			return fmt.Errorf("%w: attachment %q: manifest=%s actual=%s",
				ErrDigestMismatch, meta.LogicalPath, meta.SHA256, actual)
		}
	}
	s.byPath[meta.LogicalPath] = meta.ID
	s.entries[meta.ID] = &entry{meta: meta, data: data}
	return nil
}

// Remove deletes an attachment from both tables.
func (s *Store) Remove(id uuid.UUID) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	delete(s.byPath, e.meta.LogicalPath)
	delete(s.entries, id)
	return nil
}

// Rename moves an attachment to a new normalised logical path, updating both
// tables together.
func (s *Store) Rename(id uuid.UUID, newPath string) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if other, ok := s.byPath[newPath]; ok && other != id {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, newPath)
	}
	delete(s.byPath, e.meta.LogicalPath)
	s.byPath[newPath] = id
	e.meta.LogicalPath = newPath
	return nil
}

// Meta returns a copy of an attachment's metadata by id.
func (s *Store) Meta(id uuid.UUID) (manifest.AttachmentMeta, bool) {
	e, ok := s.entries[id]
	if !ok {
		return manifest.AttachmentMeta{}, false
	}
	return e.meta.Clone(), true
}

// MetaByPath returns a copy of an attachment's metadata by logical path.
func (s *Store) MetaByPath(logicalPath string) (manifest.AttachmentMeta, bool) {
	id, ok := s.byPath[logicalPath]
	if !ok {
		return manifest.AttachmentMeta{}, false
	}
	return s.Meta(id)
}

// Data returns a read-only view of an attachment's bytes. Callers must not
// modify the returned slice; use Mutate to change attachment content.
func (s *Store) Data(id uuid.UUID) ([]byte, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Mutate grants scoped mutable access to an attachment's bytes. fn receives
// the current bytes and returns the replacement buffer. When fn returns,
// length and digest are recomputed from the new bytes unconditionally, so no
// caller can observe a stale digest. This is the only sanctioned way to
// change attachment bytes after insertion.
func (s *Store) Mutate(id uuid.UUID, fn func(data []byte) []byte) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	e.data = fn(e.data)
	digest := manifest.Sum(e.data)
	e.meta.Length = uint64(len(e.data))
	e.meta.SHA256 = &digest
	return nil
}

// Metas returns a snapshot of all attachment metadata in unspecified order.
// Callers needing a stable order (the codec, listings) sort the result.
func (s *Store) Metas() []manifest.AttachmentMeta {
	metas := make([]manifest.AttachmentMeta, 0, len(s.entries))
	for _, e := range s.entries {
		metas = append(metas, e.meta.Clone())
	}
	return metas
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := New()
	for id, e := range s.entries {
		c.entries[id] = &entry{
			meta: e.meta.Clone(),
			data: append([]byte(nil), e.data...),
		}
		c.byPath[e.meta.LogicalPath] = id
	}
	return c
}

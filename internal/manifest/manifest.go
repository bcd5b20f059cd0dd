// Package manifest defines the document manifest and attachment metadata
// types, along with their JSON wire representation.
//
// The manifest is the structured half of a TMD document: identity, authorship,
// timestamps, tags, links, and the informational mirror of the embedded
// database schema version. Attachment metadata lives in a separate
// attachments.json entry inside the container but shares this package because
// the two are versioned together.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the container format version written by this build.
var CurrentVersion = Semver{Major: 1, Minor: 0, Patch: 0}

// Semver is the container format version triple.
type Semver struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
	Patch uint16 `json:"patch"`
}

// String returns the dotted form, e.g. "1.0.0".
func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AttachmentRef points at an attachment by id, used for the cover image.
type AttachmentRef struct {
	ID uuid.UUID `json:"id"`
}

// LinkRef is a typed external link (relation + target).
type LinkRef struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Manifest is the document's structured metadata, serialised as
// manifest.json inside the container.
type Manifest struct {
	TmdVersion  Semver    `json:"tmd_version"`
	DocID       uuid.UUID `json:"doc_id"`
	Title       string    `json:"title,omitempty"`
	Authors     []string  `json:"authors,omitempty"`
	CreatedUTC  time.Time `json:"created_utc"`
	ModifiedUTC time.Time `json:"modified_utc"`
	Tags        []string  `json:"tags,omitempty"`
	CoverImage  *AttachmentRef `json:"cover_image,omitempty"`
	Links       []LinkRef      `json:"links,omitempty"`

	// DBSchemaVersion mirrors the user_version pragma stored inside the
	// embedded database. The database is the source of truth; this field is
	// informational and refreshed by every write path that changes schema.
	DBSchemaVersion *uint32 `json:"db_schema_version,omitempty"`

	// Extras carries forward-compatible fields that this build does not
	// interpret but must round-trip.
	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// New returns a manifest for a freshly created document: a new document id
// and both timestamps set to the current UTC time.
func New() Manifest {
	now := NowUTC()
	return Manifest{
		TmdVersion:  CurrentVersion,
		DocID:       uuid.New(),
		CreatedUTC:  now,
		ModifiedUTC: now,
	}
}

// Touch updates the modification timestamp to the current UTC time.
func (m *Manifest) Touch() {
	m.ModifiedUTC = NowUTC()
}

// Clone returns a deep copy of the manifest.
func (m Manifest) Clone() Manifest {
	c := m
	c.Authors = append([]string(nil), m.Authors...)
	c.Tags = append([]string(nil), m.Tags...)
	c.Links = append([]LinkRef(nil), m.Links...)
	if m.CoverImage != nil {
		ref := *m.CoverImage
		c.CoverImage = &ref
	}
	if m.DBSchemaVersion != nil {
		v := *m.DBSchemaVersion
		c.DBSchemaVersion = &v
	}
	if m.Extras != nil {
		c.Extras = make(map[string]json.RawMessage, len(m.Extras))
		for k, v := range m.Extras {
			c.Extras[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// NowUTC returns the current time in UTC, truncated to whole seconds so that
// timestamps serialise to stable RFC3339 strings.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Digest is a SHA-256 content digest, serialised as lowercase hex.
type Digest [sha256.Size]byte

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// ParseDigest decodes a 64-character hex string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid sha256 hex: %w", err)
	}
	if len(raw) != sha256.Size {
		return d, fmt.Errorf("invalid sha256 length: %d", len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalJSON encodes the digest as a hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes the digest from a hex string.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AttachmentMeta describes one binary attachment. Length and SHA256 are
// derived from the attachment bytes by the store; they are never set
// independently.
type AttachmentMeta struct {
	ID          uuid.UUID `json:"id"`
	LogicalPath string    `json:"logical_path"`
	MediaType   string    `json:"mime"`
	Length      uint64    `json:"length"`
	SHA256      *Digest   `json:"sha256,omitempty"`
	Title       string    `json:"title,omitempty"`
	Alt         string    `json:"alt,omitempty"`

	Extras map[string]json.RawMessage `json:"extras,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (a AttachmentMeta) Clone() AttachmentMeta {
	c := a
	if a.SHA256 != nil {
		d := *a.SHA256
		c.SHA256 = &d
	}
	if a.Extras != nil {
		c.Extras = make(map[string]json.RawMessage, len(a.Extras))
		for k, v := range a.Extras {
			c.Extras[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

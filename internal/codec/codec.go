// Package codec serialises and deserialises TMD documents.
//
// Two on-disk formats share one archive layout:
//
//   - .tmdz is a plain ZIP archive holding manifest.json, index.md,
//     attachments.json, db/main.sqlite3, and one stored entry per attachment
//     at its logical path. Nothing else is permitted.
//   - .tmd is the Markdown bytes verbatim, followed by a complete .tmdz
//     archive whose end-of-central-directory comment carries a fixed trailer
//     locating the Markdown prefix (see trailer.go). The same file opens as
//     plain text and as a valid ZIP.
//
// All input lengths on the decode path are treated as adversarial: offsets
// are bounds-checked before use and failure short-circuits with ErrFormat.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tanu-md/tmd/internal/document"
)

// ErrFormat indicates structurally invalid container input: a missing
// required entry, a bad trailer, an out-of-bounds offset, or an undeclared
// archive entry.
var ErrFormat = errors.New("invalid format")

// Reserved archive entry names.
const (
	entryManifest    = "manifest.json"
	entryMarkdown    = "index.md"
	entryAttachments = "attachments.json"
	entryDatabase    = "db/main.sqlite3"
)

// Format identifies one of the two container formats.
type Format int

const (
	// FormatAuto sniffs the format from the input bytes.
	FormatAuto Format = iota
	// FormatTmd is the hybrid Markdown-prefix format.
	FormatTmd
	// FormatTmdz is the plain archive format.
	FormatTmdz
)

// String returns the conventional file extension without the dot.
func (f Format) String() string {
	switch f {
	case FormatTmd:
		return "tmd"
	case FormatTmdz:
		return "tmdz"
	default:
		return "auto"
	}
}

// zipLocalHeader is the local-file-header signature that opens every
// non-empty ZIP archive.
var zipLocalHeader = []byte{'P', 'K', 0x03, 0x04}

// Sniff inspects the leading bytes of a container and reports its format.
// A ZIP local-header signature means .tmdz; any other non-empty content is
// taken as a Markdown prefix, i.e. .tmd.
func Sniff(header []byte) (Format, bool) {
	if len(header) >= 4 && bytes.Equal(header[:4], zipLocalHeader) {
		return FormatTmdz, true
	}
	if len(header) > 0 {
		return FormatTmd, true
	}
	return FormatAuto, false
}

// ReadMode configures the decode path.
type ReadMode struct {
	// VerifyHashes recomputes attachment digests and checks them against the
	// declared metadata. Length is always checked regardless.
	VerifyHashes bool
	// LazyAttachments defers attachment byte loading. Purely an optimisation
	// knob; decoding from an in-memory buffer loads eagerly either way.
	LazyAttachments bool
}

// DefaultReadMode verifies hashes and loads attachments eagerly.
func DefaultReadMode() ReadMode {
	return ReadMode{VerifyHashes: true}
}

// WriteMode configures the encode path. Both knobs are consistency aids;
// output correctness does not depend on them.
type WriteMode struct {
	// ComputeHashes recomputes each attachment's digest from its bytes
	// before emitting metadata, rather than trusting the store's bookkeeping.
	ComputeHashes bool
	// DedupByHash detects identical-content attachments during encoding.
	// Every logical path still gets its own stored entry, so this currently
	// only skips redundant digest work.
	DedupByHash bool
}

// DefaultWriteMode computes hashes and does not deduplicate.
func DefaultWriteMode() WriteMode {
	return WriteMode{ComputeHashes: true}
}

// Decode deserialises a container from data. With FormatAuto the format is
// sniffed from the leading bytes.
func Decode(data []byte, format Format, mode ReadMode) (*document.Document, error) {
	if format == FormatAuto {
		sniffed, ok := Sniff(data)
		if !ok {
			return nil, fmt.Errorf("%w: empty input", ErrFormat)
		}
		format = sniffed
	}
	switch format {
	case FormatTmd:
		return DecodeTmd(data, mode)
	case FormatTmdz:
		return DecodeTmdz(data, mode)
	default:
		return nil, fmt.Errorf("%w: unknown format %d", ErrFormat, format)
	}
}

// Encode serialises doc to the requested format.
func Encode(doc *document.Document, format Format, mode WriteMode) ([]byte, error) {
	switch format {
	case FormatTmd:
		return EncodeTmd(doc, mode)
	case FormatTmdz:
		return EncodeTmdz(doc, mode)
	default:
		return nil, fmt.Errorf("%w: format must be tmd or tmdz when writing", ErrFormat)
	}
}

// ReadFile loads a container from disk. With FormatAuto the format is sniffed
// from the content, not the file extension.
func ReadFile(name string, format Format, mode ReadMode) (*document.Document, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Decode(data, format, mode)
}

// WriteFile serialises doc and writes it to disk atomically, so an existing
// container is never left half-written.
func WriteFile(name string, doc *document.Document, format Format, mode WriteMode) error {
	data, err := Encode(doc, format, mode)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// write.go implements the encode path for both container formats.
//
// Output is deterministic: attachment entries are emitted sorted by logical
// path regardless of insertion order, entries are stored uncompressed, and
// entry headers carry no timestamps, so two semantically identical documents
// serialise to byte-identical archives (modulo manifest timestamps).

package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/manifest"
)

// attachmentManifest is the JSON shape of the attachments.json entry.
type attachmentManifest struct {
	Attachments []manifest.AttachmentMeta `json:"attachments"`
}

// EncodeTmdz serialises doc as a plain archive.
func EncodeTmdz(doc *document.Document, mode WriteMode) ([]byte, error) {
	return buildArchive(doc, mode)
}

// EncodeTmd serialises doc as the hybrid format: Markdown bytes verbatim,
// followed by the archive with its comment patched to the TMD trailer.
func EncodeTmd(doc *document.Document, mode WriteMode) ([]byte, error) {
	markdown := []byte(doc.Markdown)
	archive, err := buildArchive(doc, mode)
	if err != nil {
		return nil, err
	}
	archive, err = patchTrailer(archive, uint64(len(markdown)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(markdown)+len(archive))
	out = append(out, markdown...)
	return append(out, archive...), nil
}

// buildArchive serialises the full aggregate into archive bytes with an empty
// EOCD comment.
func buildArchive(doc *document.Document, mode WriteMode) ([]byte, error) {
	metas := doc.Attachments.Metas()
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].LogicalPath < metas[j].LogicalPath
	})

	if mode.ComputeHashes {
		if err := refreshDigests(doc, metas, mode.DedupByHash); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifestJSON, err := json.MarshalIndent(doc.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeEntry(zw, entryManifest, manifestJSON); err != nil {
		return nil, err
	}

	if err := writeEntry(zw, entryMarkdown, []byte(doc.Markdown)); err != nil {
		return nil, err
	}

	attachmentsJSON, err := json.MarshalIndent(attachmentManifest{Attachments: metas}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode attachment metadata: %w", err)
	}
	if err := writeEntry(zw, entryAttachments, attachmentsJSON); err != nil {
		return nil, err
	}

	dbBytes, err := doc.DB.Bytes()
	if err != nil {
		return nil, fmt.Errorf("read embedded database: %w", err)
	}
	if err := writeEntry(zw, entryDatabase, dbBytes); err != nil {
		return nil, err
	}

	for _, meta := range metas {
		data, ok := doc.Attachments.Data(meta.ID)
		if !ok {
			return nil, fmt.Errorf("missing data for attachment %s", meta.ID)
		}
		if err := writeEntry(zw, meta.LogicalPath, data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// writeEntry adds one stored (uncompressed) entry. Headers carry no modified
// time, keeping output byte-identical across encodes.
func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("start entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// refreshDigests recomputes each attachment's digest from its current bytes
// so the emitted metadata cannot go stale. With dedup set, identical byte
// content shares one computed digest instead of being rehashed per entry.
func refreshDigests(doc *document.Document, metas []manifest.AttachmentMeta, dedup bool) error {
	type cached struct {
		digest manifest.Digest
		data   []byte
	}
	var byLen map[uint64][]cached
	if dedup {
		byLen = make(map[uint64][]cached)
	}

	for i := range metas {
		data, ok := doc.Attachments.Data(metas[i].ID)
		if !ok {
			return fmt.Errorf("missing data for attachment %s", metas[i].ID)
		}

		if dedup {
			found := false
			for _, c := range byLen[uint64(len(data))] {
				if bytes.Equal(c.data, data) {
					metas[i].SHA256 = &c.digest
					found = true
					break
				}
			}
			if found {
				continue
			}
		}

		digest := manifest.Sum(data)
		metas[i].Length = uint64(len(data))
		metas[i].SHA256 = &digest
		if dedup {
			byLen[uint64(len(data))] = append(byLen[uint64(len(data))], cached{digest: digest, data: data})
		}
	}
	return nil
}

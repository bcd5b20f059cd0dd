package codec

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanu-md/tmd/internal/attach"
	"github.com/tanu-md/tmd/internal/document"
	"github.com/tanu-md/tmd/internal/manifest"
)

var pixel = []byte{0, 1, 2, 3}

// sampleDoc builds a document with markdown, one attachment, and database
// content, closing it when the test finishes.
func sampleDoc(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.New("# Sample\n\nBody text\n")
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })

	doc.Manifest.Title = "Roundtrip"
	doc.Manifest.Tags = []string{"report"}

	_, err = doc.AddAttachment("images/pixel.png", "image/png", pixel)
	require.NoError(t, err)

	require.NoError(t, doc.ResetDB(`CREATE TABLE items(id INTEGER PRIMARY KEY, name TEXT);`, 2))
	require.NoError(t, doc.WithWrite(func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO items(name) VALUES ('apricot')`)
		return err
	}))
	return doc
}

func decodeOK(t *testing.T, data []byte, format Format) *document.Document {
	t.Helper()
	doc, err := Decode(data, format, DefaultReadMode())
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestTmdRoundTrip(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmd(doc, DefaultWriteMode())
	require.NoError(t, err)

	// The file must open as plain text: it starts with the markdown bytes.
	assert.True(t, bytes.HasPrefix(data, []byte(doc.Markdown)))

	got := decodeOK(t, data, FormatTmd)
	assert.Equal(t, doc.Markdown, got.Markdown)
	assert.Equal(t, doc.Manifest.DocID, got.Manifest.DocID)
	assert.Equal(t, doc.Manifest.Title, got.Manifest.Title)
	assert.Equal(t, doc.Manifest.Tags, got.Manifest.Tags)
	require.NotNil(t, got.Manifest.DBSchemaVersion)
	assert.Equal(t, uint32(2), *got.Manifest.DBSchemaVersion)

	meta, ok := got.Attachments.MetaByPath("images/pixel.png")
	require.True(t, ok)
	assert.Equal(t, uint64(4), meta.Length)
	require.NotNil(t, meta.SHA256)
	assert.Equal(t, manifest.Sum(pixel), *meta.SHA256)
	gotData, ok := got.Attachments.Data(meta.ID)
	require.True(t, ok)
	assert.Equal(t, pixel, gotData)

	v, err := got.DB.UserVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)

	var name string
	require.NoError(t, got.WithRead(func(db *sql.DB) error {
		return db.QueryRow(`SELECT name FROM items`).Scan(&name)
	}))
	assert.Equal(t, "apricot", name)
}

func TestTmdzRoundTrip(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)

	got := decodeOK(t, data, FormatTmdz)
	assert.Equal(t, doc.Markdown, got.Markdown)
	assert.Equal(t, doc.Manifest.Title, got.Manifest.Title)
	assert.Equal(t, 1, got.Attachments.Len())
}

func TestEncodeDeterminism(t *testing.T) {
	doc, err := document.New("# Det\n")
	require.NoError(t, err)
	defer doc.Close()

	// Insert in non-sorted order; output must still be canonical.
	_, err = doc.AddAttachment("z/last.bin", "application/octet-stream", []byte("zz"))
	require.NoError(t, err)
	_, err = doc.AddAttachment("a/first.bin", "application/octet-stream", []byte("aa"))
	require.NoError(t, err)

	for _, format := range []Format{FormatTmd, FormatTmdz} {
		first, err := Encode(doc, format, DefaultWriteMode())
		require.NoError(t, err)
		second, err := Encode(doc, format, DefaultWriteMode())
		require.NoError(t, err)
		assert.Equal(t, first, second, "format %s", format)
	}

	// Attachment entries are ordered by logical path.
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"manifest.json", "index.md", "attachments.json", "db/main.sqlite3", "a/first.bin", "z/last.bin"}, names)
}

// rebuildEntry rewrites a tmdz archive, replacing the content of one entry.
func rebuildEntry(t *testing.T, data []byte, name string, content []byte) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
		require.NoError(t, err)
		if f.Name == name {
			_, err = w.Write(content)
			require.NoError(t, err)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestTamperDetection(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)

	t.Run("truncated attachment fails length check", func(t *testing.T) {
		tampered := rebuildEntry(t, data, "images/pixel.png", pixel[:2])
		_, err := DecodeTmdz(tampered, DefaultReadMode())
		assert.ErrorIs(t, err, attach.ErrLengthMismatch)

		// Length is checked even with hash verification disabled.
		_, err = DecodeTmdz(tampered, ReadMode{VerifyHashes: false})
		assert.ErrorIs(t, err, attach.ErrLengthMismatch)
	})

	t.Run("flipped bit fails digest check", func(t *testing.T) {
		flipped := append([]byte(nil), pixel...)
		flipped[0] ^= 0x01
		tampered := rebuildEntry(t, data, "images/pixel.png", flipped)

		_, err := DecodeTmdz(tampered, DefaultReadMode())
		assert.ErrorIs(t, err, attach.ErrDigestMismatch)

		// Without verification the mismatch goes unnoticed by design.
		got, err := DecodeTmdz(tampered, ReadMode{VerifyHashes: false})
		require.NoError(t, err)
		defer got.Close()
	})
}

func TestUndeclaredEntryRejected(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
		require.NoError(t, err)
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "sneaky.bin", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = DecodeTmdz(buf.Bytes(), DefaultReadMode())
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "sneaky.bin")
}

func TestMissingRequiredEntry(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	for _, drop := range []string{"manifest.json", "index.md", "attachments.json", "db/main.sqlite3"} {
		t.Run("without "+drop, func(t *testing.T) {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			for _, f := range zr.File {
				if f.Name == drop {
					continue
				}
				w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
				require.NoError(t, err)
				rc, err := f.Open()
				require.NoError(t, err)
				_, err = io.Copy(w, rc)
				require.NoError(t, err)
				require.NoError(t, rc.Close())
			}
			require.NoError(t, zw.Close())

			_, err := DecodeTmdz(buf.Bytes(), DefaultReadMode())
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDatabaseMagicValidated(t *testing.T) {
	doc := sampleDoc(t)
	data, err := EncodeTmdz(doc, DefaultWriteMode())
	require.NoError(t, err)

	tampered := rebuildEntry(t, data, "db/main.sqlite3", []byte("definitely not sqlite"))
	_, err = DecodeTmdz(tampered, DefaultReadMode())
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "SQLite")
}

func TestSniff(t *testing.T) {
	format, ok := Sniff([]byte("PK\x03\x04rest"))
	require.True(t, ok)
	assert.Equal(t, FormatTmdz, format)

	format, ok = Sniff([]byte("# Markdown"))
	require.True(t, ok)
	assert.Equal(t, FormatTmd, format)

	_, ok = Sniff(nil)
	assert.False(t, ok)
}

func TestMutatedAttachmentStaysConsistentThroughEncode(t *testing.T) {
	doc := sampleDoc(t)
	meta, ok := doc.Attachments.MetaByPath("images/pixel.png")
	require.True(t, ok)
	require.NoError(t, doc.MutateAttachment(meta.ID, func(data []byte) []byte {
		return append(data, 4, 5)
	}))

	data, err := EncodeTmd(doc, DefaultWriteMode())
	require.NoError(t, err)

	got := decodeOK(t, data, FormatAuto)
	gotMeta, ok := got.Attachments.MetaByPath("images/pixel.png")
	require.True(t, ok)
	assert.Equal(t, uint64(6), gotMeta.Length)
	gotData, _ := got.Attachments.Data(gotMeta.ID)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5}, gotData)
}

func TestDedupByHashSharesDigest(t *testing.T) {
	doc, err := document.New("# Dup\n")
	require.NoError(t, err)
	defer doc.Close()

	content := []byte("same bytes")
	_, err = doc.AddAttachment("a.bin", "application/octet-stream", content)
	require.NoError(t, err)
	_, err = doc.AddAttachment("b.bin", "application/octet-stream", content)
	require.NoError(t, err)

	data, err := EncodeTmdz(doc, WriteMode{ComputeHashes: true, DedupByHash: true})
	require.NoError(t, err)

	got := decodeOK(t, data, FormatTmdz)
	a, _ := got.Attachments.MetaByPath("a.bin")
	b, _ := got.Attachments.MetaByPath("b.bin")
	require.NotNil(t, a.SHA256)
	require.NotNil(t, b.SHA256)
	assert.Equal(t, *a.SHA256, *b.SHA256)
	assert.Equal(t, manifest.Sum(content), *a.SHA256)
}

func TestReadWriteFile(t *testing.T) {
	doc := sampleDoc(t)
	dir := t.TempDir()

	tmdPath := filepath.Join(dir, "sample.tmd")
	require.NoError(t, WriteFile(tmdPath, doc, FormatTmd, DefaultWriteMode()))
	got, err := ReadFile(tmdPath, FormatAuto, DefaultReadMode())
	require.NoError(t, err)
	defer got.Close()
	assert.Equal(t, doc.Markdown, got.Markdown)
	assert.Equal(t, 1, got.Attachments.Len())

	tmdzPath := filepath.Join(dir, "sample.tmdz")
	require.NoError(t, WriteFile(tmdzPath, doc, FormatTmdz, DefaultWriteMode()))
	got2, err := ReadFile(tmdzPath, FormatAuto, DefaultReadMode())
	require.NoError(t, err)
	defer got2.Close()
	assert.Equal(t, doc.Markdown, got2.Markdown)
}

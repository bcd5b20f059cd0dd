package document

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanu-md/tmd/internal/attach"
	"github.com/tanu-md/tmd/internal/dbfile"
	"github.com/tanu-md/tmd/internal/manifest"
	"github.com/tanu-md/tmd/internal/path"
)

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := New("# Sample\n")
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

// backdate pushes both manifest timestamps into the past so tests can assert
// that an operation touched the document.
func backdate(doc *Document) time.Time {
	earlier := manifest.NowUTC().Add(-time.Hour)
	doc.Manifest.CreatedUTC = earlier
	doc.Manifest.ModifiedUTC = earlier
	return earlier
}

func TestNewInitialisesDatabase(t *testing.T) {
	doc := newTestDoc(t)

	var one int
	require.NoError(t, doc.WithRead(func(db *sql.DB) error {
		return db.QueryRow(`SELECT 1`).Scan(&one)
	}))
	assert.Equal(t, 1, one)

	v, err := doc.DB.UserVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	assert.Equal(t, 0, doc.Attachments.Len())
	assert.False(t, doc.Manifest.ModifiedUTC.Before(doc.Manifest.CreatedUTC))
}

func TestAttachmentLifecycle(t *testing.T) {
	doc := newTestDoc(t)

	id, err := doc.AddAttachment("attachments/data.bin", "application/octet-stream", []byte{1, 2, 3})
	require.NoError(t, err)

	meta, ok := doc.Attachments.Meta(id)
	require.True(t, ok)
	assert.Equal(t, "attachments/data.bin", meta.LogicalPath)
	assert.Equal(t, uint64(3), meta.Length)

	require.NoError(t, doc.RenameAttachment(id, "data/renamed.bin"))
	_, ok = doc.Attachments.MetaByPath("attachments/data.bin")
	assert.False(t, ok)
	_, ok = doc.Attachments.MetaByPath("data/renamed.bin")
	assert.True(t, ok)

	require.NoError(t, doc.RemoveAttachment(id))
	_, ok = doc.Attachments.Meta(id)
	assert.False(t, ok)
}

func TestAddAttachmentNormalisesPath(t *testing.T) {
	doc := newTestDoc(t)

	id, err := doc.AddAttachment("images/./figure.png", "image/png", []byte{1})
	require.NoError(t, err)
	meta, _ := doc.Attachments.Meta(id)
	assert.Equal(t, "images/figure.png", meta.LogicalPath)

	_, err = doc.AddAttachment("../escape.bin", "application/octet-stream", nil)
	assert.ErrorIs(t, err, path.ErrInvalid)
	_, err = doc.AddAttachment("/absolute.bin", "application/octet-stream", nil)
	assert.ErrorIs(t, err, path.ErrInvalid)
}

func TestAddAttachmentStream(t *testing.T) {
	doc := newTestDoc(t)

	id, err := doc.AddAttachmentStream("docs/note.txt", "text/plain", strings.NewReader("streamed"))
	require.NoError(t, err)
	data, ok := doc.Attachments.Data(id)
	require.True(t, ok)
	assert.Equal(t, []byte("streamed"), data)
}

func TestMutationsTouchManifest(t *testing.T) {
	doc := newTestDoc(t)

	t.Run("set markdown", func(t *testing.T) {
		earlier := backdate(doc)
		doc.SetMarkdown("# Updated\n")
		assert.True(t, doc.Manifest.ModifiedUTC.After(earlier))
	})

	t.Run("add attachment", func(t *testing.T) {
		earlier := backdate(doc)
		_, err := doc.AddAttachment("a.bin", "application/octet-stream", []byte{1})
		require.NoError(t, err)
		assert.True(t, doc.Manifest.ModifiedUTC.After(earlier))
	})

	t.Run("database write", func(t *testing.T) {
		earlier := backdate(doc)
		require.NoError(t, doc.WithWrite(func(db *sql.DB) error {
			_, err := db.Exec(`CREATE TABLE touched(x INTEGER)`)
			return err
		}))
		assert.True(t, doc.Manifest.ModifiedUTC.After(earlier))
	})

	// modified_utc >= created_utc holds throughout
	assert.False(t, doc.Manifest.ModifiedUTC.Before(doc.Manifest.CreatedUTC))
}

func TestResetAndMigrateMirrorSchemaVersion(t *testing.T) {
	doc := newTestDoc(t)

	require.NoError(t, doc.ResetDB(`CREATE TABLE items(id INTEGER PRIMARY KEY);`, 1))
	require.NotNil(t, doc.Manifest.DBSchemaVersion)
	assert.Equal(t, uint32(1), *doc.Manifest.DBSchemaVersion)

	require.NoError(t, doc.MigrateDB(`ALTER TABLE items ADD COLUMN name TEXT;`, 1, 2))
	assert.Equal(t, uint32(2), *doc.Manifest.DBSchemaVersion)

	// A failed migration leaves both the counter and the mirror alone.
	err := doc.MigrateDB(`ALTER TABLE items ADD COLUMN x INTEGER;`, 7, 8)
	assert.ErrorIs(t, err, dbfile.ErrVersionMismatch)
	assert.Equal(t, uint32(2), *doc.Manifest.DBSchemaVersion)
}

func TestImportDBRefreshesMirror(t *testing.T) {
	doc := newTestDoc(t)
	require.NoError(t, doc.ResetDB(`CREATE TABLE t(x INTEGER);`, 5))

	out := t.TempDir() + "/exported.sqlite3"
	require.NoError(t, doc.ExportDB(out))

	require.NoError(t, doc.ResetDB(`CREATE TABLE other(y INTEGER);`, 9))
	require.NoError(t, doc.ImportDB(out))

	v, err := doc.DB.UserVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v)
	require.NotNil(t, doc.Manifest.DBSchemaVersion)
	assert.Equal(t, uint32(5), *doc.Manifest.DBSchemaVersion)
}

func TestClone(t *testing.T) {
	doc := newTestDoc(t)
	id, err := doc.AddAttachment("shared.bin", "application/octet-stream", []byte("abc"))
	require.NoError(t, err)
	require.NoError(t, doc.ResetDB(`CREATE TABLE t(x INTEGER);`, 1))

	clone, err := doc.Clone()
	require.NoError(t, err)
	defer clone.Close()

	// Mutating the clone leaves the original untouched.
	require.NoError(t, clone.MutateAttachment(id, func(d []byte) []byte { return append(d, 'd') }))
	require.NoError(t, clone.WithWrite(func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO t(x) VALUES (1)`)
		return err
	}))

	origData, _ := doc.Attachments.Data(id)
	assert.Equal(t, []byte("abc"), origData)

	var n int
	require.NoError(t, doc.WithRead(func(db *sql.DB) error {
		return db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n)
	}))
	assert.Equal(t, 0, n)

	assert.Equal(t, doc.Manifest.DocID, clone.Manifest.DocID)
}

func TestCloseReleasesDatabase(t *testing.T) {
	doc, err := New("")
	require.NoError(t, err)
	require.NoError(t, doc.Close())
	assert.ErrorIs(t, doc.WithRead(func(*sql.DB) error { return nil }), dbfile.ErrClosed)
}

func TestFromParts(t *testing.T) {
	db, err := dbfile.NewEmpty()
	require.NoError(t, err)
	m := manifest.New()
	doc := FromParts("# body", m, attach.New(), db)
	defer doc.Close()
	assert.Equal(t, "# body", doc.Markdown)
	assert.Equal(t, m.DocID, doc.Manifest.DocID)
}

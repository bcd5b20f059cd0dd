package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanu-md/tmd/internal/document"
)

func TestComputeBasic(t *testing.T) {
	r := Compute("line one\nline two\n", "line one\nline 2\n", "a.tmd", "b.tmd")

	assert.Equal(t, "a.tmd", r.Old)
	assert.Equal(t, "b.tmd", r.New)
	assert.Contains(t, r.Diff, "- ")
	assert.Contains(t, r.Diff, "+ ")
}

func TestComputeIdentical(t *testing.T) {
	r := Compute("same\n", "same\n", "a", "b")
	assert.NotContains(t, r.Diff, "- ")
	assert.NotContains(t, r.Diff, "+ ")
}

func TestFormatCollapsesLongEqualRuns(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "same line")
	}
	oldText := "first\n" + strings.Join(lines, "\n") + "\nlast\n"
	newText := "FIRST\n" + strings.Join(lines, "\n") + "\nlast\n"

	r := Compute(oldText, newText, "a", "b")
	assert.Contains(t, r.Diff, "  ...\n")
}

func TestColourise(t *testing.T) {
	out := Colourise("- removed\n+ added\n  same\n")
	assert.Contains(t, out, "\033[31m- removed\033[0m")
	assert.Contains(t, out, "\033[32m+ added\033[0m")
	assert.Contains(t, out, "  same\n")
}

func TestDocuments(t *testing.T) {
	oldDoc, err := document.New("# Title\n\nbody\n")
	require.NoError(t, err)
	defer oldDoc.Close()
	newDoc, err := document.New("# Title\n\nrevised body\n")
	require.NoError(t, err)
	defer newDoc.Close()

	_, err = oldDoc.AddAttachment("keep.bin", "application/octet-stream", []byte{1})
	require.NoError(t, err)
	_, err = oldDoc.AddAttachment("gone.bin", "application/octet-stream", []byte{2})
	require.NoError(t, err)
	_, err = newDoc.AddAttachment("keep.bin", "application/octet-stream", []byte{9})
	require.NoError(t, err)
	_, err = newDoc.AddAttachment("fresh.bin", "application/octet-stream", []byte{3})
	require.NoError(t, err)
	require.NoError(t, newDoc.ResetDB(`CREATE TABLE t(x INTEGER);`, 2))

	r := Documents(oldDoc, newDoc, "old.tmd", "new.tmd")
	assert.Equal(t, []string{"fresh.bin"}, r.Added)
	assert.Equal(t, []string{"gone.bin"}, r.Removed)
	assert.Equal(t, []string{"keep.bin"}, r.Changed)

	out := r.Format(false)
	assert.Contains(t, out, "--- old.tmd")
	assert.Contains(t, out, "attachment added:   fresh.bin")
	assert.Contains(t, out, "attachment removed: gone.bin")
	assert.Contains(t, out, "attachment changed: keep.bin")
	assert.Contains(t, out, "db schema version:  unset -> 2")
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatRaw(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# Title\n\nplain body\n")

	out := e.run("cat", "doc.tmd", "--raw")
	assert.Equal(t, "# Title\n\nplain body\n", out)
}

func TestCatRendered(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# Title\n\nbody\n")

	// Non-TTY output falls back to the notty style; content still appears.
	out := e.run("cat", "doc.tmd")
	e.contains(out, "Title")
}

func TestCatJSON(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# Title\n")

	out := e.run("cat", "doc.tmd", "-o", "json")
	e.contains(out, `"markdown":"# Title\n"`)
	e.contains(out, `"title":"Test Document"`)
}

func TestCatWorkspaceDir(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# From Workspace\n")
	e.run("unpack", "doc.tmd", "ws")

	out := e.run("cat", "ws", "--raw")
	e.contains(out, "# From Workspace")
}

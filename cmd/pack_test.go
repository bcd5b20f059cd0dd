package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackPackRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# Round Trip\n\nbody\n")
	pixel := e.write("pixel.png", []byte{0, 1, 2, 3})
	e.run("attach", "add", "doc.tmd", pixel, "--path", "images/pixel.png")

	e.run("unpack", "doc.tmd", "ws")
	for _, name := range []string{"ws/index.md", "ws/manifest.json", "ws/attachments.json", "ws/images/pixel.png", "ws/db/main.sqlite3"} {
		_, err := os.Stat(e.path(name))
		assert.NoError(t, err, name)
	}

	e.run("pack", "ws", "repacked.tmd")
	out := e.run("validate", "repacked.tmd")
	e.contains(out, "repacked.tmd: ok")
	e.contains(out, "1 attachments")

	body := e.run("cat", "repacked.tmd", "--raw")
	e.contains(body, "# Round Trip")
}

func TestUnpackRefusesNonEmptyDir(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# X\n")
	e.write("ws/existing.txt", []byte("x"))

	out, err := e.runErr("unpack", "doc.tmd", "ws")
	require.Error(t, err)
	e.contains(out, "not empty")

	e.run("unpack", "doc.tmd", "ws", "--force")
}

func TestPackDetectsTamperedAttachment(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# X\n")
	pixel := e.write("pixel.png", []byte{0, 1, 2, 3})
	e.run("attach", "add", "doc.tmd", pixel, "--path", "pixel.png")
	e.run("unpack", "doc.tmd", "ws")

	// Flip a byte in the unpacked attachment without updating attachments.json.
	p := e.path("ws/pixel.png")
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(p, data, 0o644))

	out, errRun := e.runErr("pack", "ws", "tampered.tmd")
	require.Error(t, errRun)
	e.contains(out, "sha256 mismatch")
}

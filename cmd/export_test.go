package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportHTML(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# Page\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")

	e.run("export-html", "doc.tmd")
	data, err := os.ReadFile(e.path("doc.html"))
	require.NoError(t, err)
	page := string(data)
	e.contains(page, "<h1>Page</h1>")
	e.contains(page, "<table>")
	e.contains(page, "<title>Test Document</title>")
}

func TestExportHTMLSelfContained(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "![p](images/pixel.png)\n")
	src := e.write("pixel.png", []byte{0, 1, 2, 3})
	e.run("attach", "add", "doc.tmd", src, "--path", "images/pixel.png")

	e.run("export-html", "doc.tmd", e.path("page.html"), "--self-contained")
	data, err := os.ReadFile(e.path("page.html"))
	require.NoError(t, err)
	e.contains(string(data), "data:image/png;base64,AAECAw==")
}

func TestExportHTMLRefusesOverwrite(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# X\n")
	e.write("doc.html", []byte("existing"))

	out, err := e.runErr("export-html", "doc.tmd")
	require.Error(t, err)
	e.contains(out, "already exists")
}

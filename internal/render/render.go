// Package render turns a document into a standalone HTML page.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tanu-md/tmd/internal/document"
)

// Options control HTML output.
type Options struct {
	// SelfContained inlines attachment references as base64 data URIs so the
	// page needs no files next to it.
	SelfContained bool
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.TaskList),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

// HTML renders the document body plus an attachment appendix as a complete
// HTML page. The page title comes from the manifest, falling back to the
// document id when no title is set.
func HTML(doc *document.Document, opts Options) ([]byte, error) {
	source := doc.Markdown
	if opts.SelfContained {
		source = inlineAttachments(doc, source)
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	title := doc.Manifest.Title
	if title == "" {
		title = doc.Manifest.DocID.String()
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	page.WriteString("<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	writeAttachmentAppendix(&page, doc, opts)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// inlineAttachments replaces references to attachment logical paths in the
// Markdown source with data URIs.
func inlineAttachments(doc *document.Document, source string) string {
	metas := doc.Attachments.Metas()
	sort.Slice(metas, func(i, j int) bool { return metas[i].LogicalPath < metas[j].LogicalPath })
	for _, meta := range metas {
		data, ok := doc.Attachments.Data(meta.ID)
		if !ok {
			continue
		}
		source = strings.ReplaceAll(source, "("+meta.LogicalPath+")", "("+dataURI(meta.MediaType, data)+")")
	}
	return source
}

func dataURI(mediaType string, data []byte) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// writeAttachmentAppendix appends a listing of every attachment. In
// self-contained mode each entry links to its data URI, otherwise to its
// logical path.
func writeAttachmentAppendix(page *bytes.Buffer, doc *document.Document, opts Options) {
	metas := doc.Attachments.Metas()
	if len(metas) == 0 {
		return
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].LogicalPath < metas[j].LogicalPath })

	page.WriteString("<hr>\n<section id=\"attachments\">\n<h2>Attachments</h2>\n<ul>\n")
	for _, meta := range metas {
		href := meta.LogicalPath
		if opts.SelfContained {
			if data, ok := doc.Attachments.Data(meta.ID); ok {
				href = dataURI(meta.MediaType, data)
			}
		}
		label := meta.LogicalPath
		if meta.Title != "" {
			label = meta.Title
		}
		fmt.Fprintf(page, "<li><a href=\"%s\">%s</a> (%s, %d bytes)</li>\n",
			href, html.EscapeString(label), html.EscapeString(meta.MediaType), meta.Length)
	}
	page.WriteString("</ul>\n</section>\n")
}

// Package diff computes and formats differences between two documents:
// a line-oriented diff of the Markdown bodies plus a summary of attachment
// and schema changes.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tanu-md/tmd/internal/document"
)

// contextLines is the number of unchanged lines shown before/after changes.
// When equal sections exceed 2*contextLines, they're collapsed with "...".
const contextLines = 3

// Result holds diff output.
type Result struct {
	Old  string // old label
	New  string // new label
	Diff string // plain markdown diff text

	// Attachment changes keyed by logical path.
	Added   []string
	Removed []string
	Changed []string

	// Schema version change, nil entries meaning "unset".
	OldSchema *uint32
	NewSchema *uint32
}

// Compute returns a diff between old and new Markdown content.
func Compute(oldContent, newContent, oldLabel, newLabel string) Result {
	dmp := diffmatchpatch.New()
	d := dmp.DiffMain(oldContent, newContent, false)
	d = dmp.DiffCleanupSemantic(d)

	return Result{
		Old:  oldLabel,
		New:  newLabel,
		Diff: format(d),
	}
}

// Documents diffs two whole documents: Markdown bodies, attachment sets
// (compared by logical path and digest), and the manifest schema version.
func Documents(oldDoc, newDoc *document.Document, oldLabel, newLabel string) Result {
	r := Compute(oldDoc.Markdown, newDoc.Markdown, oldLabel, newLabel)

	oldByPath := metasByPath(oldDoc)
	newByPath := metasByPath(newDoc)

	for p, om := range oldByPath {
		nm, ok := newByPath[p]
		switch {
		case !ok:
			r.Removed = append(r.Removed, p)
		case digestsDiffer(om.SHA256Hex(), nm.SHA256Hex()) || om.Length != nm.Length:
			r.Changed = append(r.Changed, p)
		}
	}
	for p := range newByPath {
		if _, ok := oldByPath[p]; !ok {
			r.Added = append(r.Added, p)
		}
	}
	sort.Strings(r.Added)
	sort.Strings(r.Removed)
	sort.Strings(r.Changed)

	r.OldSchema = oldDoc.Manifest.DBSchemaVersion
	r.NewSchema = newDoc.Manifest.DBSchemaVersion
	return r
}

type pathMeta struct {
	Length uint64
	sha256 string
}

func (m pathMeta) SHA256Hex() string { return m.sha256 }

func metasByPath(doc *document.Document) map[string]pathMeta {
	out := make(map[string]pathMeta)
	for _, meta := range doc.Attachments.Metas() {
		pm := pathMeta{Length: meta.Length}
		if meta.SHA256 != nil {
			pm.sha256 = meta.SHA256.String()
		}
		out[meta.LogicalPath] = pm
	}
	return out
}

func digestsDiffer(a, b string) bool {
	if a == "" || b == "" {
		return false // undeclared digest, fall back to length comparison
	}
	return a != b
}

// format converts diffs to unified-style text.
func format(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		// Trim trailing newline to avoid artefact empty string from Split
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" {
			continue
		}
		lines := strings.Split(text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				b.WriteString("- " + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				b.WriteString("+ " + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			if len(lines) > 2*contextLines {
				for i := range contextLines {
					b.WriteString("  " + lines[i] + "\n")
				}
				b.WriteString("  ...\n")
				for i := len(lines) - contextLines; i < len(lines); i++ {
					b.WriteString("  " + lines[i] + "\n")
				}
			} else {
				for _, l := range lines {
					b.WriteString("  " + l + "\n")
				}
			}
		}
	}
	return b.String()
}

// Colourise adds ANSI colours to diff output.
func Colourise(d string) string {
	const (
		red   = "\033[31m"
		green = "\033[32m"
		reset = "\033[0m"
	)

	var b strings.Builder
	for _, line := range strings.Split(d, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "):
			b.WriteString(red + line + reset + "\n")
		case strings.HasPrefix(line, "+ "):
			b.WriteString(green + line + reset + "\n")
		default:
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// Format returns the full diff with header and attachment summary.
func (r Result) Format(colour bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", r.Old, r.New)
	if colour {
		b.WriteString(Colourise(r.Diff))
	} else {
		b.WriteString(r.Diff)
	}

	for _, p := range r.Added {
		fmt.Fprintf(&b, "attachment added:   %s\n", p)
	}
	for _, p := range r.Removed {
		fmt.Fprintf(&b, "attachment removed: %s\n", p)
	}
	for _, p := range r.Changed {
		fmt.Fprintf(&b, "attachment changed: %s\n", p)
	}
	if schemaString(r.OldSchema) != schemaString(r.NewSchema) {
		fmt.Fprintf(&b, "db schema version:  %s -> %s\n", schemaString(r.OldSchema), schemaString(r.NewSchema))
	}
	return b.String()
}

func schemaString(v *uint32) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprint(*v)
}

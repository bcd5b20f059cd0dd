// Package query runs read-only SQL against a document database and renders
// the result set as a Markdown table.
package query

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/tanu-md/tmd/internal/document"
)

// Result holds one executed query's column names and stringified rows.
type Result struct {
	Columns []string
	Rows    [][]string
}

// Run executes sqlText against the document's database through a query-only
// connection and collects the result set. Writes and DDL are rejected by
// SQLite, so the document's database cannot change. Cell values are rendered
// the way the CLI displays them: NULL for nulls, <blob> for binary columns.
func Run(doc *document.Document, sqlText string) (*Result, error) {
	res := &Result{}
	err := doc.WithRead(func(db *sql.DB) error {
		rows, err := db.Query(sqlText)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()

		res.Columns, err = rows.Columns()
		if err != nil {
			return err
		}

		for rows.Next() {
			cells := make([]any, len(res.Columns))
			for i := range cells {
				cells[i] = new(any)
			}
			if err := rows.Scan(cells...); err != nil {
				return err
			}
			row := make([]string, len(cells))
			for i, c := range cells {
				row[i] = renderValue(*c.(*any))
			}
			res.Rows = append(res.Rows, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// renderValue converts one scanned cell into display text.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "<blob>"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Markdown renders the result as a GitHub-style table. An empty result set
// still produces the header and separator rows.
func (r *Result) Markdown() string {
	widths := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		widths[i] = len(c)
	}
	for _, row := range r.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteByte('|')
		for i, cell := range cells {
			b.WriteByte(' ')
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			b.WriteString(" |")
		}
		b.WriteByte('\n')
	}

	writeRow(r.Columns)
	b.WriteByte('|')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('|')
	}
	b.WriteByte('\n')
	for _, row := range r.Rows {
		writeRow(row)
	}
	return b.String()
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE fruit(id INTEGER PRIMARY KEY, name TEXT, price REAL);
INSERT INTO fruit(name, price) VALUES ('apricot', 2.5), ('banana', NULL);
`

func TestDBResetAndQuery(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# DB\n")
	schema := e.write("schema.sql", []byte(testSchema))

	out := e.run("db", "reset", "doc.tmd", "--schema", schema, "--version", "1")
	e.contains(out, "schema version 1")

	out = e.run("db", "query", "doc.tmd", "SELECT name, price FROM fruit ORDER BY id")
	e.contains(out, "| name")
	e.contains(out, "apricot")
	e.contains(out, "NULL")
}

func TestDBMigrate(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# DB\n")
	schema := e.write("schema.sql", []byte(testSchema))
	step := e.write("step.sql", []byte(`ALTER TABLE fruit ADD COLUMN origin TEXT;`))

	e.run("db", "reset", "doc.tmd", "--schema", schema, "--version", "1")
	out := e.run("db", "migrate", "doc.tmd", "--step", step, "--from", "1", "--to", "2")
	e.contains(out, "migrated database 1 -> 2")

	// Wrong --from is refused and the data survives.
	out, err := e.runErr("db", "migrate", "doc.tmd", "--step", step, "--from", "7", "--to", "8")
	require.Error(t, err)
	e.contains(out, "version")

	out = e.run("db", "query", "doc.tmd", "SELECT COUNT(*) AS n FROM fruit")
	e.contains(out, "2")
}

func TestDBExportImport(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("a.tmd", "# A\n")
	e.newContainer("b.tmd", "# B\n")
	schema := e.write("schema.sql", []byte(testSchema))

	e.run("db", "reset", "a.tmd", "--schema", schema, "--version", "3")
	e.run("db", "export", "a.tmd", e.path("standalone.sqlite3"))
	e.run("db", "import", "b.tmd", e.path("standalone.sqlite3"))

	out := e.run("db", "query", "b.tmd", "SELECT name FROM fruit ORDER BY id")
	e.contains(out, "apricot")
}

func TestDBQueryRejectsWrites(t *testing.T) {
	e := newTestEnv(t)
	e.newContainer("doc.tmd", "# DB\n")
	schema := e.write("schema.sql", []byte(testSchema))
	e.run("db", "reset", "doc.tmd", "--schema", schema, "--version", "1")

	// Queries run on a query-only connection, so the write itself is
	// refused, not merely discarded.
	_, err := e.runErr("db", "query", "doc.tmd", "DELETE FROM fruit")
	require.Error(t, err)

	out := e.run("db", "query", "doc.tmd", "SELECT COUNT(*) AS n FROM fruit")
	e.contains(out, "2")
}

// Package dbfile manages the lifecycle of a document's embedded SQLite
// database.
//
// Each document owns exactly one Handle, and each Handle owns exactly one
// backing file inside a private temporary directory. The file path is never
// exposed to callers; all access goes through WithRead/WithWrite, which open
// a connection, run the caller's function, and close the connection before
// returning. WithRead connections are query-only: SQLite rejects writes and
// DDL on them. Connection lifetime is bounded to a single call, which
// prevents leaked handles but does not provide cross-call atomicity - callers
// needing several statements to be atomic group them in one WithWrite.
//
// The schema version lives inside the database itself as the user_version
// pragma. Migrations are gated on it and leave it untouched on failure.
//
// This is the only package that imports the SQLite driver.
package dbfile

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register sqlite driver
	_ "modernc.org/sqlite"
)

// Magic is the 16-byte header identifying a SQLite database file.
const Magic = "SQLite format 3\x00"

// backingName is the fixed name of the backing file inside the private
// temporary directory, matching the db/ entry name in the container.
const backingName = "main.sqlite3"

// ErrVersionMismatch indicates a migration was attempted against the wrong
// schema version.
var ErrVersionMismatch = errors.New("schema version mismatch")

// ErrClosed indicates the handle's backing file has already been released.
var ErrClosed = errors.New("database handle closed")

// Handle owns the temporary backing file for one document's database.
type Handle struct {
	dir  string // private temp dir, removed on Close
	path string // dir/main.sqlite3
}

// NewEmpty materialises a fresh empty database with user_version 0.
func NewEmpty() (*Handle, error) {
	h, err := newHandle()
	if err != nil {
		return nil, err
	}
	err = h.WithWrite(func(db *sql.DB) error {
		if _, err := db.Exec(`PRAGMA user_version = 0`); err != nil {
			return err
		}
		// VACUUM forces the header to disk so the backing file is a valid
		// SQLite database even before the first table is created.
		_, err := db.Exec(`VACUUM`)
		return err
	})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("initialise database: %w", err)
	}
	return h, nil
}

// FromBytes materialises the backing file from an existing buffer. The caller
// is responsible for the buffer being a well-formed SQLite database; the
// codec validates the magic header before calling this.
func FromBytes(data []byte) (*Handle, error) {
	h, err := newHandle()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(h.path, data, 0o600); err != nil {
		h.Close()
		return nil, fmt.Errorf("write database file: %w", err)
	}
	return h, nil
}

func newHandle() (*Handle, error) {
	dir, err := os.MkdirTemp("", "tmd-db-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Handle{dir: dir, path: filepath.Join(dir, backingName)}, nil
}

// Close removes the backing file and its temporary directory. The handle must
// not be used afterwards. Safe to call more than once.
func (h *Handle) Close() error {
	if h.dir == "" {
		return nil
	}
	dir := h.dir
	h.dir, h.path = "", ""
	return os.RemoveAll(dir)
}

func (h *Handle) open() (*sql.DB, error) {
	if h.path == "" {
		return nil, ErrClosed
	}
	db, err := sql.Open("sqlite", h.path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection per scoped call; there is nothing to pool.
	db.SetMaxOpenConns(1)
	return db, nil
}

// WithRead opens a private query-only connection, invokes fn, and
// unconditionally closes the connection before returning. The connection has
// PRAGMA query_only set, so any write or DDL statement fn attempts is
// rejected by SQLite.
func (h *Handle) WithRead(fn func(db *sql.DB) error) error {
	db, err := h.open()
	if err != nil {
		return err
	}
	defer db.Close()
	// Single pooled connection (see open), so the pragma covers every
	// statement fn runs.
	if _, err := db.Exec(`PRAGMA query_only = ON`); err != nil {
		return fmt.Errorf("set query_only: %w", err)
	}
	return fn(db)
}

// WithWrite is WithRead's mutable counterpart, opening an ordinary
// read-write connection on the same backing file.
func (h *Handle) WithWrite(fn func(db *sql.DB) error) error {
	db, err := h.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// UserVersion reads the schema version counter stored in the database file.
func (h *Handle) UserVersion() (uint32, error) {
	var v int64
	err := h.WithRead(func(db *sql.DB) error {
		return db.QueryRow(`PRAGMA user_version`).Scan(&v)
	})
	if err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return uint32(v), nil
}

// Reset destructively replaces all database content: every user table, view,
// index, and trigger is dropped, schemaSQL is applied, and the version
// counter is set to version. Runs in one transaction, so an invalid schema
// leaves the previous content and version intact.
func (h *Handle) Reset(schemaSQL string, version uint32) error {
	err := h.WithWrite(func(db *sql.DB) error {
		return inTx(db, func(tx *sql.Tx) error {
			if err := dropAll(tx); err != nil {
				return err
			}
			if _, err := tx.Exec(schemaSQL); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
				return fmt.Errorf("set user_version: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	return nil
}

// Migrate applies one migration step. It fails with ErrVersionMismatch unless
// the stored version counter is exactly from; on success the counter advances
// to to. Step SQL and the counter update share a transaction, so a failed
// step leaves the counter at from.
func (h *Handle) Migrate(stepSQL string, from, to uint32) error {
	current, err := h.UserVersion()
	if err != nil {
		return err
	}
	if current != from {
		return fmt.Errorf("%w: expected user_version %d but found %d", ErrVersionMismatch, from, current)
	}
	err = h.WithWrite(func(db *sql.DB) error {
		return inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(stepSQL); err != nil {
				return fmt.Errorf("migration %d -> %d: %w", from, to, err)
			}
			if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, to)); err != nil {
				return fmt.Errorf("set user_version: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// Bytes returns the raw content of the backing file.
func (h *Handle) Bytes() ([]byte, error) {
	if h.path == "" {
		return nil, ErrClosed
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("read database file: %w", err)
	}
	return data, nil
}

// ExportTo copies the backing file to an external location.
func (h *Handle) ExportTo(dst string) error {
	if h.path == "" {
		return ErrClosed
	}
	return copyFile(h.path, dst)
}

// ImportFrom replaces the backing file's content with the file at src.
func (h *Handle) ImportFrom(src string) error {
	if h.path == "" {
		return ErrClosed
	}
	return copyFile(src, h.path)
}

// Clone materialises an independent handle backed by a copy of this
// database's current bytes.
func (h *Handle) Clone() (*Handle, error) {
	data, err := h.Bytes()
	if err != nil {
		return nil, err
	}
	return FromBytes(data)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// inTx runs fn in a transaction, rolling back on error.
func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// dropAll removes every user-defined object from the database.
func dropAll(tx *sql.Tx) error {
	rows, err := tx.Query(`SELECT type, name FROM sqlite_master WHERE name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}
	type object struct{ typ, name string }
	var objects []object
	for rows.Next() {
		var o object
		if err := rows.Scan(&o.typ, &o.name); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema object: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	// Triggers and views first, then indexes, then tables. Dropping a table
	// implicitly drops its indexes and triggers, so later drops use IF EXISTS.
	order := map[string]int{"trigger": 0, "view": 1, "index": 2, "table": 3}
	for rank := 0; rank <= 3; rank++ {
		for _, o := range objects {
			if order[o.typ] != rank {
				continue
			}
			stmt := fmt.Sprintf(`DROP %s IF EXISTS %s`, dropKeyword(o.typ), quoteIdent(o.name))
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("drop %s %s: %w", o.typ, o.name, err)
			}
		}
	}
	return nil
}

// quoteIdent quotes a SQLite identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func dropKeyword(typ string) string {
	switch typ {
	case "view":
		return "VIEW"
	case "index":
		return "INDEX"
	case "trigger":
		return "TRIGGER"
	default:
		return "TABLE"
	}
}

// Package log provides centralised audit logging for tmd operations.
// Logs are stored in ~/.tmd/log/tmd-log.db and track CLI commands and MCP
// tool invocations across working directories.
//
// # Fluent API
//
// Use the fluent builder API to construct and write log entries:
//
//	log.Event("cli:pack", "write").
//		Author(author).
//		File(outPath).
//		Write(err)
//
//	log.Event("mcp:tmd_query", "read").
//		File(containerPath).
//		Detail("sql", sqlText).
//		Write(err)
//
// The source parameter follows the format "cli:{command}" for CLI commands
// or "mcp:{tool}" for MCP tools.
package log

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single log entry.
type Entry struct {
	Source string // e.g., "cli:pack", "mcp:tmd_read"
	Author string // who performed the action
	Action string // verb: read, write, validate, query, etc.
	File   string // container or workspace path the operation targeted

	// Timing
	Start int64 // unix timestamp when Event() called
	End   int64 // unix timestamp when Write() called

	Success bool           // whether operation succeeded
	Error   string         // error message if failed
	Detail  map[string]any // additional operation-specific data
}

// Builder constructs a log entry using a fluent API.
// Create with [Event], chain methods to set fields, then call [Builder.Write]
// to write the entry.
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
//
// The source identifies where the operation originated:
//   - CLI commands: "cli:{command}" (e.g., "cli:pack", "cli:validate")
//   - MCP tools: "mcp:{tool}" (e.g., "mcp:tmd_read", "mcp:tmd_query")
//
// The action describes what operation was performed:
//   - "read", "write", "validate", "query", "export", etc.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Author sets who performed the operation.
func (b *Builder) Author(author string) *Builder {
	b.entry.Author = author
	return b
}

// File sets the container or workspace path this operation targets.
// Leave unset for operations that don't touch a file (e.g., config).
func (b *Builder) File(path string) *Builder {
	b.entry.File = path
	return b
}

// Detail adds a key-value pair to the log entry's detail map.
//
// Use for operation-specific data that doesn't fit standard fields:
// SQL text, attachment paths, schema versions, etc. Can be called multiple
// times to add multiple details.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write writes the log entry to the database, deriving success/failure from err.
//
// If err is nil, the entry is logged as successful.
// If err is non-nil, the entry is logged as failed with the error message.
//
// Example:
//
//	doc, err := codec.ReadFile(path, mode)
//	log.Event("cli:validate", "read").File(path).Write(err)
//	if err != nil {
//		return err
//	}
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times.
// Errors are returned but callers may choose to ignore them (best-effort logging).
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := dbPath()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &Logger{db: db}
	return nil
}

// SetWorkdir sets the working-directory identifier for subsequent entries.
func SetWorkdir(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.workdir = hash(dir)
	}
}

// Log writes an entry. Safe to call if logger not initialised (no-op).
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}

// Package mcp implements the Model Context Protocol server, exposing one
// document container to LLMs. This enables AI assistants to read the
// Markdown body, inspect attachments, and query the embedded database
// through a standardised protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/document"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// Serve loads the container at path and starts the MCP server over stdio.
// Uses stdio transport for compatibility with Claude Desktop and other MCP
// clients. The document is read once at startup; the tmd_reload tool
// re-reads it from disk when the file changes underneath the server.
func Serve(path string) error {
	// Log to stderr; stdout is reserved for MCP JSON-RPC messages
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	doc, err := codec.ReadFile(path, codec.FormatAuto, codec.DefaultReadMode())
	if err != nil {
		slog.Error("failed to open container", "path", path, "error", err)
		return err
	}
	h := &handlers{path: path, doc: doc}
	defer h.close()

	s := server.NewMCPServer(
		"tmd",
		Version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	registerResources(s, h)
	registerTools(s, h)

	slog.Info("tmd MCP server ready", "version", Version, "path", path, "transport", "stdio")

	err = server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// handlers provides MCP request handlers with access to the loaded document.
// The mutex serialises access: tools may reload the document while resource
// reads are in flight.
type handlers struct {
	mu   sync.Mutex
	path string
	doc  *document.Document
}

func (h *handlers) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.doc != nil {
		_ = h.doc.Close()
		h.doc = nil
	}
}

// registerResources adds URI-based resource access for direct content reading.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResource(
		mcp.NewResource(
			"tmd://document",
			"Document Body",
			mcp.WithResourceDescription("The document's Markdown body"),
			mcp.WithMIMEType("text/markdown"),
		),
		h.readBodyResource,
	)

	s.AddResource(
		mcp.NewResource(
			"tmd://manifest",
			"Manifest",
			mcp.WithResourceDescription("The document's manifest metadata"),
			mcp.WithMIMEType("application/json"),
		),
		h.readManifestResource,
	)

	// Attachment bytes by logical path
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"tmd://attachments/{path}",
			"Attachment",
			mcp.WithTemplateDescription("Read attachment bytes by logical path"),
		),
		h.readAttachmentResource,
	)
}

// registerTools exposes container operations as MCP tools for LLM invocation.
func registerTools(s *server.MCPServer, h *handlers) {
	s.AddTool(
		mcp.NewTool("tmd_read",
			mcp.WithDescription("Read the document's Markdown body and manifest metadata"),
		),
		h.readDocument,
	)

	s.AddTool(
		mcp.NewTool("tmd_attachments",
			mcp.WithDescription("List attachment metadata (logical path, media type, length, digest)"),
		),
		h.listAttachments,
	)

	s.AddTool(
		mcp.NewTool("tmd_attachment_get",
			mcp.WithDescription("Read one attachment's bytes, base64-encoded"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Attachment logical path")),
		),
		h.getAttachment,
	)

	s.AddTool(
		mcp.NewTool("tmd_query",
			mcp.WithDescription("Run read-only SQL against the embedded database; returns a Markdown table"),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SQL query (SELECT only)")),
		),
		h.queryDatabase,
	)

	s.AddTool(
		mcp.NewTool("tmd_validate",
			mcp.WithDescription("Re-read the container from disk, verifying structure and attachment digests"),
		),
		h.validateContainer,
	)

	s.AddTool(
		mcp.NewTool("tmd_reload",
			mcp.WithDescription("Reload the container from disk, discarding the in-memory copy"),
		),
		h.reloadContainer,
	)
}

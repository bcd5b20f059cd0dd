// tools.go implements the MCP tool handlers.
//
// Errors return MCP tool error results rather than Go errors. This ensures
// the LLM receives actionable feedback it can parse and potentially retry,
// rather than causing the entire tool call to fail at the protocol level.

package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tanu-md/tmd/internal/codec"
	"github.com/tanu-md/tmd/internal/log"
	"github.com/tanu-md/tmd/internal/query"
)

// readDocument handles tmd_read tool calls, returning the Markdown body
// together with the manifest so the LLM gets full context in one call.
func (h *handlers) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l := log.Event("mcp:tmd_read", "read").File(h.path)
	defer l.Write(nil)

	return jsonResult(map[string]any{
		"markdown": h.doc.Markdown,
		"manifest": h.doc.Manifest,
	})
}

// listAttachments handles tmd_attachments tool calls.
func (h *handlers) listAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	metas := h.doc.Attachments.Metas()
	sort.Slice(metas, func(i, j int) bool { return metas[i].LogicalPath < metas[j].LogicalPath })

	log.Event("mcp:tmd_attachments", "list").File(h.path).Detail("count", len(metas)).Write(nil)
	return jsonResult(metas)
}

// getAttachment handles tmd_attachment_get tool calls. Bytes are returned
// base64-encoded since MCP text results cannot carry raw binary.
func (h *handlers) getAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	l := log.Event("mcp:tmd_attachment_get", "read").File(h.path).Detail("attachment", path)
	meta, ok := h.doc.Attachments.MetaByPath(path)
	if !ok {
		err := fmt.Errorf("no attachment at %q", path)
		l.Write(err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := h.doc.Attachments.Data(meta.ID)
	l.Write(nil)

	return jsonResult(map[string]any{
		"meta": meta,
		"data": base64.StdEncoding.EncodeToString(data),
	})
}

// queryDatabase handles tmd_query tool calls. Queries run on a query-only
// connection, so a smuggled write or DDL statement is rejected by SQLite
// instead of mutating the document this server keeps serving.
func (h *handlers) queryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError("sql is required"), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	l := log.Event("mcp:tmd_query", "query").File(h.path).Detail("sql", sqlText)
	res, err := query.Run(h.doc, sqlText)
	l.Write(err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Markdown()), nil
}

// validateContainer handles tmd_validate tool calls by decoding the file
// fresh from disk with hash verification on.
func (h *handlers) validateContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	path := h.path
	h.mu.Unlock()

	l := log.Event("mcp:tmd_validate", "validate").File(path)
	doc, err := codec.ReadFile(path, codec.FormatAuto, codec.DefaultReadMode())
	l.Write(err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer doc.Close()

	var schema any
	if doc.Manifest.DBSchemaVersion != nil {
		schema = *doc.Manifest.DBSchemaVersion
	}
	return jsonResult(map[string]any{
		"valid":             true,
		"doc_id":            doc.Manifest.DocID,
		"tmd_version":       doc.Manifest.TmdVersion.String(),
		"attachments":       doc.Attachments.Len(),
		"db_schema_version": schema,
	})
}

// reloadContainer handles tmd_reload tool calls, swapping the in-memory
// document for a fresh read of the file.
func (h *handlers) reloadContainer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l := log.Event("mcp:tmd_reload", "read").File(h.path)
	doc, err := codec.ReadFile(h.path, codec.FormatAuto, codec.DefaultReadMode())
	l.Write(err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_ = h.doc.Close()
	h.doc = doc
	return mcp.NewToolResultText(fmt.Sprintf("reloaded %s (modified %s)", h.path,
		doc.Manifest.ModifiedUTC.Format(time.RFC3339))), nil
}

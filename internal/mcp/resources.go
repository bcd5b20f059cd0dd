// resources.go implements MCP resource handlers for content access.
//
// MCP resources provide read-only access via URI schemes, enabling LLM
// clients to reference the document body, manifest, or an attachment without
// invoking tools. This is useful for context loading where the LLM needs
// content but isn't performing an action.

package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

var (
	// ErrInvalidURI indicates a malformed resource URI, helping clients
	// debug URI construction issues.
	ErrInvalidURI = errors.New("invalid URI")
	// ErrEmptyPath indicates a missing attachment path in a resource URI.
	ErrEmptyPath = errors.New("empty attachment path")
)

// readBodyResource handles tmd://document resource requests.
func (h *handlers) readBodyResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     h.doc.Markdown,
		},
	}, nil
}

// readManifestResource handles tmd://manifest resource requests.
func (h *handlers) readManifestResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.MarshalIndent(h.doc.Manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// readAttachmentResource handles tmd://attachments/{path} resource requests.
func (h *handlers) readAttachmentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	path, err := parseAttachmentURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	meta, ok := h.doc.Attachments.MetaByPath(path)
	if !ok {
		return nil, fmt.Errorf("no attachment at %q", path)
	}
	data, _ := h.doc.Attachments.Data(meta.ID)

	return []mcp.ResourceContents{
		mcp.BlobResourceContents{
			URI:      req.Params.URI,
			MIMEType: meta.MediaType,
			Blob:     base64.StdEncoding.EncodeToString(data),
		},
	}, nil
}

// parseAttachmentURI extracts the logical path from tmd://attachments/{path}.
func parseAttachmentURI(uri string) (string, error) {
	const prefix = "tmd://attachments/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	if rest == "" {
		return "", ErrEmptyPath
	}
	return rest, nil
}

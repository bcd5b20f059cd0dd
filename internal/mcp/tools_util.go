// tools_util.go provides helpers shared by the MCP tool handlers.

package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult serialises any value as pretty-printed JSON and wraps it in an
// MCP text result for return to the LLM client. LLMs parse structured output
// more reliably when it's formatted for readability, which is worth the
// slight increase in token count.
//
// Errors during marshalling are converted to MCP error results rather than
// propagating as Go errors, keeping the tool response pattern consistent.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

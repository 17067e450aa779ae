package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/exfor-index/pkg/types"
)

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report build metadata and totals of the EXFOR index",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchReactionsTool returns the tool definition for search_reactions
func searchReactionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_reactions",
		Description: "Find indexed measurements by entry, author, target, reaction or quantity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry": map[string]interface{}{
					"type":        "string",
					"description": "EXFOR accession number, e.g. 12345",
				},
				"author": map[string]interface{}{
					"type":        "string",
					"description": "Author family name",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Target nuclide without charge number, e.g. FE-56",
				},
				"reaction": map[string]interface{}{
					"type":        "string",
					"description": "Projectile and products, e.g. N,EL",
				},
				"projectile": map[string]interface{}{
					"type":        "string",
					"description": "Incident particle, e.g. N",
				},
				"quantity": map[string]interface{}{
					"type":        "string",
					"description": "Canonical quantity, e.g. SIG or DA",
				},
				"monitored": map[string]interface{}{
					"type":        "boolean",
					"description": "Only measurements with (true) or without (false) a monitor",
				},
				"combination": map[string]interface{}{
					"type":        "boolean",
					"description": "Only reaction combinations (true) or single reactions (false)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of rows to return (1-1000)",
					"default":     100,
					"minimum":     1,
					"maximum":     1000,
				},
			},
		},
	}
}

// relatedEntriesTool returns the tool definition for related_entries
func relatedEntriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "related_entries",
		Description: "List the reactions of an entry, the other entries measuring them and the entry's DOIs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry": map[string]interface{}{
					"type":        "string",
					"description": "EXFOR accession number",
				},
			},
			Required: []string{"entry"},
		},
	}
}

// listErrorsTool returns the tool definition for list_errors
func listErrorsTool() mcp.Tool {
	kinds := make([]string, len(types.ErrorKinds))
	for i, k := range types.ErrorKinds {
		kinds[i] = string(k)
	}

	return mcp.Tool{
		Name:        "list_errors",
		Description: "List entry files that failed to index, optionally of one error kind",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Error kind to list",
					"enum":        kinds,
				},
			},
		},
	}
}

// queryArchiveTool returns the tool definition for query_archive
func queryArchiveTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_archive",
		Description: "Evaluate a JSONPath expression against one of the index archives",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"archive": map[string]interface{}{
					"type":        "string",
					"description": "Archive to query",
					"enum":        []string{"coupled", "monitored", "counts", "errors"},
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "JSONPath expression, e.g. $[?(@.count > 100)].equation",
				},
			},
			Required: []string{"archive", "path"},
		},
	}
}

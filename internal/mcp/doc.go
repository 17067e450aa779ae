// Package mcp implements the Model Context Protocol (MCP) server for a built EXFOR index.
//
// The server exposes five read-only tools to MCP clients:
//   - get_status: Build metadata and totals of the index
//   - search_reactions: Rows of theworks matching a filter
//   - related_entries: Entries sharing a reaction with an entry, plus its DOIs
//   - list_errors: Entry files that failed to index
//   - query_archive: JSONPath over one of the JSON archives
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The server is started via the serve command against an index directory:
//
//	x4index serve --out ./index
//
// # Tool: search_reactions
//
//	Request:
//	{
//	  "name": "search_reactions",
//	  "arguments": {
//	    "target": "FE-56",
//	    "reaction": "N,EL",
//	    "monitored": false,
//	    "limit": 20
//	  }
//	}
//
//	Response:
//	{
//	  "rows": [
//	    {"entry": "12345", "subentry": "002", "pointer": " ", "author": "Smith", ...}
//	  ],
//	  "total": 1,
//	  "cache_hit": false,
//	  "duration_ms": 2
//	}
//
// At least one filter is required. Text filters other than author are matched
// upper-cased; limit defaults to 100 and may not exceed 1000.
//
// # Tool: query_archive
//
//	Request:
//	{
//	  "name": "query_archive",
//	  "arguments": {
//	    "archive": "counts",
//	    "path": "$[?(@.count > 100)].equation"
//	  }
//	}
//
// Archives are coupled, monitored, counts and errors.
//
// # Error Handling
//
// Tool failures are returned as MCPError values:
//
//	-32602  Invalid parameters (bad limit, unknown kind or archive, bad JSONPath)
//	-32603  Internal error
//	-32001  Entry is not in the index
//	-32003  Archive has not been written
//	-32004  Required query parameter is empty
package mcp

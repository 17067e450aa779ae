package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/exfor-index/internal/query"
	"github.com/dshills/exfor-index/internal/storage"
	"github.com/dshills/exfor-index/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEntryNotFound = -32001 // Entry is not in the index
	ErrorCodeNotIndexed    = -32003 // Index or archive has not been built
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty

	maxSearchLimit = 1000
)

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := toolArguments(request); err != nil {
		return nil, err
	}

	status, err := s.query.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(status)), nil
}

// handleSearchReactions handles the search_reactions tool invocation
func (s *Server) handleSearchReactions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArguments(request)
	if err != nil {
		return nil, err
	}

	filter := storage.RowFilter{
		Entry:       strings.TrimSpace(getStringDefault(args, "entry", "")),
		Author:      strings.TrimSpace(getStringDefault(args, "author", "")),
		Target:      strings.TrimSpace(getStringDefault(args, "target", "")),
		Reaction:    strings.TrimSpace(getStringDefault(args, "reaction", "")),
		Projectile:  strings.TrimSpace(getStringDefault(args, "projectile", "")),
		Quantity:    strings.TrimSpace(getStringDefault(args, "quantity", "")),
		Monitored:   getBoolPtr(args, "monitored"),
		Combination: getBoolPtr(args, "combination"),
	}
	if filter == (storage.RowFilter{}) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "at least one filter is required", map[string]interface{}{
			"params": []string{"entry", "author", "target", "reaction", "projectile", "quantity", "monitored", "combination"},
		})
	}

	limit := getIntDefault(args, "limit", query.DefaultLimit)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.query.Search(ctx, query.SearchRequest{
		Filter:   filter,
		Limit:    limit,
		UseCache: true,
	})
	if err != nil {
		return nil, toolError("search failed", err)
	}

	response := map[string]interface{}{
		"rows":        resp.Rows,
		"total":       resp.Total,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRelatedEntries handles the related_entries tool invocation
func (s *Server) handleRelatedEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArguments(request)
	if err != nil {
		return nil, err
	}

	entry := strings.TrimSpace(getStringDefault(args, "entry", ""))
	if entry == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "entry parameter is required", map[string]interface{}{
			"param":  "entry",
			"reason": "missing or empty",
		})
	}

	related, err := s.query.RelatedEntries(ctx, entry)
	if err != nil {
		return nil, toolError("failed to find related entries", err)
	}

	return mcp.NewToolResultText(formatJSON(related)), nil
}

// handleListErrors handles the list_errors tool invocation
func (s *Server) handleListErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArguments(request)
	if err != nil {
		return nil, err
	}

	kind := types.ErrorKind(strings.TrimSpace(getStringDefault(args, "kind", "")))
	if kind != "" && !knownKind(kind) {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown error kind", map[string]interface{}{
			"param": "kind",
			"value": string(kind),
		})
	}

	records, err := s.query.Errors(kind)
	if err != nil {
		return nil, toolError("failed to read error log", err)
	}

	response := map[string]interface{}{
		"total":  len(records),
		"errors": records,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueryArchive handles the query_archive tool invocation
func (s *Server) handleQueryArchive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := toolArguments(request)
	if err != nil {
		return nil, err
	}

	archive := getStringDefault(args, "archive", "")
	if archive == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "archive parameter is required", map[string]interface{}{
			"param":  "archive",
			"reason": "missing or empty",
		})
	}

	path := strings.TrimSpace(getStringDefault(args, "path", ""))
	if path == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	results, err := s.query.ArchiveQuery(archive, path)
	if err != nil {
		return nil, toolError("archive query failed", err)
	}

	response := map[string]interface{}{
		"archive": archive,
		"path":    path,
		"total":   len(results),
		"results": results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError maps a query failure onto an MCP error code
func toolError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return newMCPError(ErrorCodeEntryNotFound, message, data)
	case errors.Is(err, query.ErrInvalidRequest), errors.Is(err, query.ErrUnknownArchive):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, fs.ErrNotExist):
		return newMCPError(ErrorCodeNotIndexed, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// toolArguments returns the argument map of a request; tools without
// required parameters may be called with none
func toolArguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// validateIndexDir checks that dir holds a built index
func validateIndexDir(layout storage.Layout) error {
	if layout.Dir == "" {
		return ErrPathRequired
	}

	info, err := os.Stat(layout.Dir)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	if _, err := os.Stat(layout.Path(layout.Index)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotIndexed, layout.Dir)
	}
	return nil
}

func knownKind(kind types.ErrorKind) bool {
	for _, k := range types.ErrorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolPtr extracts an optional boolean parameter; nil when absent
func getBoolPtr(args map[string]interface{}, key string) *bool {
	if val, ok := args[key].(bool); ok {
		return &val
	}
	return nil
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("index directory is required")
	ErrPathNotFound    = errors.New("index directory does not exist")
	ErrPathNotReadable = errors.New("index directory is not readable")
	ErrNotDirectory    = errors.New("index path is not a directory")
	ErrNotIndexed      = errors.New("directory does not contain an index")
)

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docchunk-mcp/internal/extractor"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeDocumentNotFound = -32001 // No document with the given id
	ErrorCodeSplitInProgress  = -32002 // A split task is already running for the document
	ErrorCodeSegmentNotFound  = -32003 // No segment with the given id
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
	ErrorCodeExtractionFailed = -32005 // Document text could not be read
)

const (
	defaultPageSize    = 10
	maxPageSize        = 100
	defaultSearchLimit = 10
	maxSearchLimit     = 100

	// previewLength is the number of characters list results show before "..."
	previewLength = 95
)

// handleRegisterDocument handles the register_document tool invocation
func (s *Server) handleRegisterDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := strings.TrimSpace(getStringDefault(args, "path", ""))
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	var declared types.DocumentType
	if raw := strings.TrimSpace(getStringDefault(args, "type", "")); raw != "" {
		t, err := types.ParseDocumentType(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "unsupported document type", map[string]interface{}{
				"param":   "type",
				"value":   raw,
				"allowed": []string{"txt", "md", "docx", "pdf"},
			})
		}
		declared = t
	}

	doc, err := extractor.NewDocument(path, declared)
	if errors.Is(err, types.ErrUnsupportedType) {
		return nil, newMCPError(ErrorCodeInvalidParams, "unsupported document type", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if err := s.storage.CreateDocument(ctx, doc); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to register document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.FromContext(ctx).Info("document registered", "document_id", doc.ID, "path", doc.Path, "type", doc.Type)

	return mcp.NewToolResultText(formatJSON(documentResponse(doc))), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		count, err := s.storage.CountSegments(ctx, doc.ID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to count segments", map[string]interface{}{
				"document_id": doc.ID,
				"error":       err.Error(),
			})
		}
		item := documentResponse(doc)
		item["segment_count"] = count
		items = append(items, item)
	}

	response := map[string]interface{}{
		"documents": items,
		"count":     len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSplitDocument handles the split_document tool invocation
func (s *Server) handleSplitDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, err := requireID(args, "document_id")
	if err != nil {
		return nil, err
	}

	cfg := s.defaults
	if method := strings.TrimSpace(getStringDefault(args, "method", "")); method != "" {
		cfg.Method = types.ParseSplitMethod(method)
	}
	cfg.BlockSize = getIntDefault(args, "block_size", cfg.BlockSize)
	cfg.Overlap = getIntDefault(args, "overlap", cfg.Overlap)
	cfg.MinLength = getIntDefault(args, "min_length", cfg.MinLength)
	cfg = cfg.Normalize(s.runner.Limits())

	taskID, err := s.runner.Submit(ctx, documentID, cfg)
	if errors.Is(err, types.ErrSplitInProgress) {
		return nil, newMCPError(ErrorCodeSplitInProgress, "a split is already running for this document", map[string]interface{}{
			"document_id": documentID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start split", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"task_id":     taskID,
		"document_id": documentID,
		"status":      types.TaskProcessing,
		"method":      cfg.Method,
		"block_size":  cfg.BlockSize,
		"overlap":     cfg.Overlap,
		"min_length":  cfg.MinLength,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSplitProgress handles the get_split_progress tool invocation
func (s *Server) handleGetSplitProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	taskID := strings.TrimSpace(getStringDefault(args, "task_id", ""))
	if taskID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "task_id parameter is required", map[string]interface{}{
			"param":  "task_id",
			"reason": "missing or empty",
		})
	}

	p, err := s.runner.Poll(taskID)
	if errors.Is(err, types.ErrTaskNotFound) {
		p = types.NotStartedProgress(taskID)
	} else if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read progress", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(progressResponse(p))), nil
}

// handleListSegments handles the list_segments tool invocation
func (s *Server) handleListSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, err := requireID(args, "document_id")
	if err != nil {
		return nil, err
	}

	page := getIntDefault(args, "page", 1)
	if page < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "page must be at least 1", map[string]interface{}{
			"param": "page",
			"value": page,
		})
	}
	pageSize := getIntDefault(args, "page_size", defaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("page_size must be between 1 and %d", maxPageSize), map[string]interface{}{
			"param": "page_size",
			"value": pageSize,
		})
	}

	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}

	total, err := s.storage.CountSegments(ctx, documentID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count segments", map[string]interface{}{
			"error": err.Error(),
		})
	}

	segments, err := s.storage.ListSegments(ctx, documentID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list segments", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(segments))
	for _, seg := range segments {
		items = append(items, segmentResponse(seg))
	}

	response := map[string]interface{}{
		"document_id": documentID,
		"segments":    items,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteSegment handles the delete_segment tool invocation
func (s *Server) handleDeleteSegment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	segmentID, err := requireID(args, "segment_id")
	if err != nil {
		return nil, err
	}

	err = s.storage.DeleteSegment(ctx, segmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeSegmentNotFound, "segment not found", map[string]interface{}{
			"segment_id": segmentID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete segment", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.FromContext(ctx).Info("segment deleted", "segment_id", segmentID)

	response := map[string]interface{}{
		"deleted":    true,
		"segment_id": segmentID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchSegments handles the search_segments tool invocation
func (s *Server) handleSearchSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	var documentID int64
	if _, present := args["document_id"]; present {
		id, err := requireID(args, "document_id")
		if err != nil {
			return nil, err
		}
		documentID = id
	}

	limit := getIntDefault(args, "limit", defaultSearchLimit)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	start := time.Now()
	results, err := s.storage.SearchSegments(ctx, query, documentID, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		item := segmentResponse(r.Segment)
		item["score"] = r.Score
		items = append(items, item)
	}

	response := map[string]interface{}{
		"query":       query,
		"results":     items,
		"count":       len(items),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if documentID != 0 {
		response["document_id"] = documentID
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetDocumentStats handles the get_document_stats tool invocation
func (s *Server) handleGetDocumentStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, err := requireID(args, "document_id")
	if err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(ctx, doc.Path, doc.Type)
	if err != nil {
		return nil, newMCPError(ErrorCodeExtractionFailed, "failed to read document text", map[string]interface{}{
			"document_id": documentID,
			"error":       err.Error(),
		})
	}

	count, err := s.storage.CountSegments(ctx, documentID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count segments", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := documentResponse(doc)
	response["segment_count"] = count
	response["stats"] = extractor.Stats(text)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.storage.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"documents":         stats.Documents,
			"chunked_documents": stats.ChunkedDocuments,
			"segments":          stats.Segments,
			"database_size_mb":  fmt.Sprintf("%.2f", stats.SizeMB),
		},
		"storage": map[string]interface{}{
			"schema_version": stats.SchemaVersion,
			"driver":         stats.DriverName,
			"build_mode":     stats.BuildMode,
		},
		"running_tasks": s.runner.Running(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// loadDocument fetches a document, mapping a missing id to an MCP error
func (s *Server) loadDocument(ctx context.Context, documentID int64) (*types.Document, error) {
	doc, err := s.storage.GetDocument(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeDocumentNotFound, "document not found", map[string]interface{}{
			"document_id": documentID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load document", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return doc, nil
}

// Response builders

func documentResponse(doc *types.Document) map[string]interface{} {
	return map[string]interface{}{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"path":        doc.Path,
		"type":        doc.Type,
		"size_bytes":  doc.SizeBytes,
		"status":      doc.Status,
		"created_at":  doc.CreatedAt.Format(time.RFC3339),
		"updated_at":  doc.UpdatedAt.Format(time.RFC3339),
	}
}

func segmentResponse(seg *types.Segment) map[string]interface{} {
	return map[string]interface{}{
		"segment_id":   seg.ID,
		"document_id":  seg.DocumentID,
		"index":        seg.Index,
		"content":      preview(seg.Content),
		"full_content": seg.Content,
		"length":       utf8.RuneCountInString(seg.Content),
	}
}

func progressResponse(p types.Progress) map[string]interface{} {
	response := map[string]interface{}{
		"task_id": p.TaskID,
		"current": p.Current,
		"total":   p.Total,
		"status":  p.Status,
	}
	if p.DocumentID != 0 {
		response["document_id"] = p.DocumentID
	}
	if p.Method != "" {
		response["method"] = p.Method
		response["method_fallback"] = p.MethodFallback
	}
	if p.Error != "" {
		response["error"] = p.Error
	}
	if p.RolledBack {
		response["rolled_back"] = true
	}
	if !p.StartedAt.IsZero() {
		response["started_at"] = p.StartedAt.Format(time.RFC3339)
	}
	if !p.FinishedAt.IsZero() {
		response["finished_at"] = p.FinishedAt.Format(time.RFC3339)
		response["duration_ms"] = p.FinishedAt.Sub(p.StartedAt).Milliseconds()
	}
	return response
}

// preview shortens content to previewLength characters followed by "..."
func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
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

// requireID extracts a positive integer identifier
func requireID(args map[string]interface{}, key string) (int64, error) {
	var id int64
	switch v := args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, invalidID(key, v)
		}
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	case nil:
		return 0, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing",
		})
	default:
		return 0, invalidID(key, v)
	}
	if id < 1 {
		return 0, invalidID(key, id)
	}
	return id, nil
}

func invalidID(key string, value interface{}) error {
	return newMCPError(ErrorCodeInvalidParams, key+" must be a positive integer", map[string]interface{}{
		"param": key,
		"value": value,
	})
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
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

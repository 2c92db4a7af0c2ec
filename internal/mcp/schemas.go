package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// documentIDProperty is shared by every tool addressing a single document
func documentIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     1,
	}
}

// registerDocumentTool returns the tool definition for register_document
func registerDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_document",
		Description: "Register a plain text, markdown, Word (.docx) or PDF file so it can be split into segments",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the document file",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Document type; detected from the extension or content when omitted",
					"enum":        []string{"txt", "md", "docx", "pdf"},
				},
			},
			Required: []string{"path"},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documents",
		Description: "List registered documents with their status and segment counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// splitDocumentTool returns the tool definition for split_document
func splitDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "split_document",
		Description: "Start splitting a registered document into segments in the background. Returns a task id to poll with get_split_progress.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty("Identifier returned by register_document"),
				"method": map[string]interface{}{
					"type":        "string",
					"description": "Boundary strategy. Unknown methods fall back to paragraph.",
					"enum":        []string{"paragraph", "heading", "table", "auto"},
				},
				"block_size": map[string]interface{}{
					"type":        "integer",
					"description": "Target characters per segment; clamped to the configured range (default 100-5000)",
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Overlap percentage between windows of an oversized block (0-99)",
					"minimum":     0,
					"maximum":     99,
				},
				"min_length": map[string]interface{}{
					"type":        "integer",
					"description": "Drop blocks shorter than this many characters before windowing (0 keeps all)",
					"minimum":     0,
					"default":     0,
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// getSplitProgressTool returns the tool definition for get_split_progress
func getSplitProgressTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_split_progress",
		Description: "Get the progress of a split task. Unknown task ids report not_started.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task_id": map[string]interface{}{
					"type":        "string",
					"description": "Task id returned by split_document",
				},
			},
			Required: []string{"task_id"},
		},
	}
}

// listSegmentsTool returns the tool definition for list_segments
func listSegmentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_segments",
		Description: "List a document's segments in order, one page at a time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty("Document whose segments to list"),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "1-based page number",
					"default":     1,
					"minimum":     1,
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Segments per page (1-100)",
					"default":     defaultPageSize,
					"minimum":     1,
					"maximum":     maxPageSize,
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// deleteSegmentTool returns the tool definition for delete_segment
func deleteSegmentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_segment",
		Description: "Delete a single segment",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"segment_id": map[string]interface{}{
					"type":        "integer",
					"description": "Segment identifier from list_segments or search_segments",
					"minimum":     1,
				},
			},
			Required: []string{"segment_id"},
		},
	}
}

// searchSegmentsTool returns the tool definition for search_segments
func searchSegmentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_segments",
		Description: "Full-text search over stored segments, best matches first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Keywords; every term must appear in a matching segment",
				},
				"document_id": documentIDProperty("Restrict the search to one document"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     defaultSearchLimit,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getDocumentStatsTool returns the tool definition for get_document_stats
func getDocumentStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document_stats",
		Description: "Get text statistics, segment count and status of a document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": documentIDProperty("Document to inspect"),
			},
			Required: []string{"document_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Get database statistics and the number of running split tasks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// Package mcp implements the Model Context Protocol (MCP) server for docchunk.
//
// The MCP server exposes the chunking engine to MCP clients as tools:
//   - register_document: Register a txt, md, docx or pdf file
//   - list_documents: List registered documents with status and segment counts
//   - split_document: Start a background split and get a task id
//   - get_split_progress: Poll a task's current/total/status
//   - list_segments: Page through a document's segments
//   - delete_segment: Remove one segment
//   - search_segments: Full-text search over segments
//   - get_document_stats: Text statistics of a document
//   - get_status: Database statistics and running tasks
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	docchunk serve
//
// It then listens on stdin for MCP protocol messages and writes responses to
// stdout. Logs go to stderr.
//
// # Tool: split_document
//
// Splitting runs in the background. The call returns as soon as the task
// is created:
//
//	Request:
//	{
//	  "name": "split_document",
//	  "arguments": {
//	    "document_id": 3,
//	    "method": "auto",
//	    "block_size": 800,
//	    "overlap": 10
//	  }
//	}
//
//	Response:
//	{
//	  "task_id": "6f1c0c1e-0d7a-4a9e-9d0b-2c4a4d0f8a51",
//	  "document_id": 3,
//	  "status": "processing",
//	  "method": "auto",
//	  "block_size": 800,
//	  "overlap": 10,
//	  "min_length": 0
//	}
//
// Omitted fields take the configured defaults. Block size and overlap are
// clamped into range rather than rejected.
//
// # Tool: get_split_progress
//
//	Request:
//	{
//	  "name": "get_split_progress",
//	  "arguments": {"task_id": "6f1c0c1e-0d7a-4a9e-9d0b-2c4a4d0f8a51"}
//	}
//
//	Response:
//	{
//	  "task_id": "6f1c0c1e-0d7a-4a9e-9d0b-2c4a4d0f8a51",
//	  "document_id": 3,
//	  "current": 12,
//	  "total": 40,
//	  "status": "processing",
//	  "method": "auto",
//	  "method_fallback": false
//	}
//
// An unknown or expired task id answers {"current": 0, "total": 1,
// "status": "not_started"}. A failed task reports status "error" and an
// "error" message.
//
// # Tool: list_segments
//
// Pages default to 10 segments. "content" is cut to 95 characters plus
// "..." and "full_content" carries the whole segment.
//
// # Error Handling
//
// Handlers return *MCPError values:
//
//	{
//	  "error": {
//	    "code": -32002,
//	    "message": "a split is already running for this document",
//	    "data": {"document_id": 3}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, unsupported type)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Document not found
//   - -32002: Split in progress
//   - -32003: Segment not found
//   - -32004: Empty query
//   - -32005: Document text could not be extracted
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "docchunk": {
//	      "command": "/usr/local/bin/docchunk",
//	      "args": ["serve"],
//	      "env": {
//	        "DOCCHUNK_SPLIT_BLOCK_SIZE": "800"
//	      }
//	    }
//	  }
//	}
package mcp

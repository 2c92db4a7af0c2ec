package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docchunk-mcp/internal/extractor"
	"github.com/dshills/docchunk-mcp/internal/splitter"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

type toolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// setupTestServer creates a server backed by an in-memory database
func setupTestServer(t *testing.T, ext splitter.Extractor) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	if ext == nil {
		ext = extractor.New()
	}
	runner, err := splitter.New(store, ext, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Close(ctx)
		_ = store.Close()
	})

	s, err := NewServer(Options{Storage: store, Runner: runner})
	require.NoError(t, err)
	return s
}

func callTool(t *testing.T, handler toolHandler, name string, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		return nil, err
	}

	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mustCall(t *testing.T, handler toolHandler, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	out, err := callTool(t, handler, name, args)
	require.NoError(t, err)
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func registerDoc(t *testing.T, s *Server, name, content string) float64 {
	t.Helper()

	out := mustCall(t, s.handleRegisterDocument, "register_document", map[string]interface{}{
		"path": writeDoc(t, name, content),
	})
	return out["document_id"].(float64)
}

func splitAndWait(t *testing.T, s *Server, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	out := mustCall(t, s.handleSplitDocument, "split_document", args)
	taskID := out["task_id"].(string)
	require.NotEmpty(t, taskID)
	assert.Equal(t, "processing", out["status"])

	var progress map[string]interface{}
	require.Eventually(t, func() bool {
		progress = mustCall(t, s.handleGetSplitProgress, "get_split_progress", map[string]interface{}{"task_id": taskID})
		status := progress["status"].(string)
		return status == "done" || status == "error"
	}, 5*time.Second, 10*time.Millisecond)
	return progress
}

func TestNewServer(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runner, err := splitter.New(store, extractor.New(), nil)
	require.NoError(t, err)
	defer func() { _ = runner.Close(context.Background()) }()

	t.Run("requires storage", func(t *testing.T) {
		_, err := NewServer(Options{Runner: runner})
		assert.Error(t, err)
	})

	t.Run("requires runner", func(t *testing.T) {
		_, err := NewServer(Options{Storage: store})
		assert.Error(t, err)
	})

	t.Run("fills defaults", func(t *testing.T) {
		s, err := NewServer(Options{Storage: store, Runner: runner})
		require.NoError(t, err)
		assert.NotNil(t, s.mcp)
		assert.NotNil(t, s.extractor)
		assert.Equal(t, types.DefaultSplitConfig(), s.defaults)
	})

	t.Run("clamps configured defaults", func(t *testing.T) {
		s, err := NewServer(Options{
			Storage: store,
			Runner:  runner,
			Split:   types.SplitConfig{Method: types.MethodAuto, BlockSize: 50000, Overlap: 150},
		})
		require.NoError(t, err)
		assert.Equal(t, types.MethodAuto, s.defaults.Method)
		assert.Equal(t, types.DefaultMaxBlockSize, s.defaults.BlockSize)
		assert.Equal(t, types.MaxOverlap, s.defaults.Overlap)
	})
}

func TestRegisterDocument(t *testing.T) {
	s := setupTestServer(t, nil)

	t.Run("detects type", func(t *testing.T) {
		out := mustCall(t, s.handleRegisterDocument, "register_document", map[string]interface{}{
			"path": writeDoc(t, "guide.md", "# Guide\n"),
		})
		assert.Equal(t, "guide.md", out["filename"])
		assert.Equal(t, "md", out["type"])
		assert.Equal(t, "pending", out["status"])
		assert.Equal(t, float64(8), out["size_bytes"])
		assert.Greater(t, out["document_id"].(float64), float64(0))
	})

	t.Run("declared type", func(t *testing.T) {
		out := mustCall(t, s.handleRegisterDocument, "register_document", map[string]interface{}{
			"path": writeDoc(t, "notes.log", "plain"),
			"type": "TXT",
		})
		assert.Equal(t, "txt", out["type"])
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := callTool(t, s.handleRegisterDocument, "register_document", map[string]interface{}{})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("unsupported declared type", func(t *testing.T) {
		_, err := callTool(t, s.handleRegisterDocument, "register_document", map[string]interface{}{
			"path": writeDoc(t, "sheet.txt", "a,b"),
			"type": "xlsx",
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("file does not exist", func(t *testing.T) {
		_, err := callTool(t, s.handleRegisterDocument, "register_document", map[string]interface{}{
			"path": filepath.Join(t.TempDir(), "missing.txt"),
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := s.handleRegisterDocument(context.Background(), mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: "register_document", Arguments: "nope"},
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestSplitDocument_EndToEnd(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.md", "# Intro\nalpha beta\n\ngamma\n# Usage\ndelta")

	progress := splitAndWait(t, s, map[string]interface{}{
		"document_id": id,
		"method":      "AUTO",
	})
	assert.Equal(t, "done", progress["status"])
	assert.Equal(t, float64(3), progress["current"])
	assert.Equal(t, float64(3), progress["total"])
	assert.Equal(t, "auto", progress["method"])
	assert.Equal(t, false, progress["method_fallback"])
	assert.Equal(t, id, progress["document_id"])
	assert.NotEmpty(t, progress["finished_at"])

	list := mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{"document_id": id})
	assert.Equal(t, float64(3), list["total"])
	assert.Equal(t, float64(1), list["page"])
	assert.Equal(t, float64(defaultPageSize), list["page_size"])

	segments := list["segments"].([]interface{})
	require.Len(t, segments, 3)
	first := segments[0].(map[string]interface{})
	assert.Equal(t, float64(0), first["index"])
	assert.Equal(t, "# Intro\nalpha beta", first["full_content"])

	docs := mustCall(t, s.handleListDocuments, "list_documents", nil)
	assert.Equal(t, float64(1), docs["count"])
	doc := docs["documents"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "chunked", doc["status"])
	assert.Equal(t, float64(3), doc["segment_count"])
}

func TestSplitDocument_Defaults(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.txt", "one\n\ntwo")

	out := mustCall(t, s.handleSplitDocument, "split_document", map[string]interface{}{
		"document_id": id,
		"block_size":  float64(5),
		"overlap":     float64(120),
		"min_length":  float64(-3),
	})
	assert.Equal(t, "paragraph", out["method"])
	assert.Equal(t, float64(types.DefaultMinBlockSize), out["block_size"])
	assert.Equal(t, float64(types.MaxOverlap), out["overlap"])
	assert.Equal(t, float64(0), out["min_length"])
}

func TestSplitDocument_ConfiguredDefaults(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	runner, err := splitter.New(store, extractor.New(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Close(ctx)
		_ = store.Close()
	})

	s, err := NewServer(Options{
		Storage: store,
		Runner:  runner,
		Split:   types.SplitConfig{Method: types.MethodHeading, BlockSize: 400, Overlap: 5, MinLength: 7},
	})
	require.NoError(t, err)

	id := registerDoc(t, s, "doc.md", "# A\nshort\n# B\nlong enough body")

	out := mustCall(t, s.handleSplitDocument, "split_document", map[string]interface{}{
		"document_id": id,
	})
	assert.Equal(t, "heading", out["method"])
	assert.Equal(t, float64(400), out["block_size"])
	assert.Equal(t, float64(5), out["overlap"])
	assert.Equal(t, float64(7), out["min_length"])

	out = mustCall(t, s.handleSplitDocument, "split_document", map[string]interface{}{
		"document_id": float64(id + 1000),
		"min_length":  float64(0),
	})
	assert.Equal(t, float64(0), out["min_length"], "explicit argument wins over the default")
}

func TestSplitDocument_UnknownMethodFallsBack(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.txt", "one\n\ntwo")

	progress := splitAndWait(t, s, map[string]interface{}{
		"document_id": id,
		"method":      "semantic",
	})
	assert.Equal(t, "done", progress["status"])
	assert.Equal(t, "paragraph", progress["method"])
	assert.Equal(t, true, progress["method_fallback"])
}

func TestSplitDocument_MissingDocumentFailsTask(t *testing.T) {
	s := setupTestServer(t, nil)

	progress := splitAndWait(t, s, map[string]interface{}{"document_id": float64(42)})
	assert.Equal(t, "error", progress["status"])
	assert.Equal(t, float64(0), progress["current"])
	assert.Equal(t, float64(1), progress["total"])
	assert.Contains(t, progress["error"], "document not found")
}

// blockingExtractor holds extraction until release is closed
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(ctx context.Context, path string, docType types.DocumentType) (string, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSplitDocument_InProgress(t *testing.T) {
	ext := &blockingExtractor{started: make(chan struct{}, 4), release: make(chan struct{})}
	s := setupTestServer(t, ext)
	id := registerDoc(t, s, "doc.txt", "text")

	out := mustCall(t, s.handleSplitDocument, "split_document", map[string]interface{}{"document_id": id})
	<-ext.started

	_, err := callTool(t, s.handleSplitDocument, "split_document", map[string]interface{}{"document_id": id})
	requireMCPError(t, err, ErrorCodeSplitInProgress)

	progress := mustCall(t, s.handleGetSplitProgress, "get_split_progress", map[string]interface{}{"task_id": out["task_id"]})
	assert.Equal(t, "processing", progress["status"])
	assert.Equal(t, float64(0), progress["current"])
	assert.Equal(t, float64(1), progress["total"])

	status := mustCall(t, s.handleGetStatus, "get_status", nil)
	assert.Equal(t, float64(1), status["running_tasks"])

	close(ext.release)
}

func TestSplitDocument_InvalidParams(t *testing.T) {
	s := setupTestServer(t, nil)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing document_id", map[string]interface{}{}},
		{"fractional document_id", map[string]interface{}{"document_id": 1.5}},
		{"negative document_id", map[string]interface{}{"document_id": float64(-1)}},
		{"string document_id", map[string]interface{}{"document_id": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callTool(t, s.handleSplitDocument, "split_document", tt.args)
			requireMCPError(t, err, ErrorCodeInvalidParams)
		})
	}
}

func TestGetSplitProgress(t *testing.T) {
	s := setupTestServer(t, nil)

	t.Run("unknown task reports not started", func(t *testing.T) {
		out := mustCall(t, s.handleGetSplitProgress, "get_split_progress", map[string]interface{}{"task_id": "nope"})
		assert.Equal(t, "not_started", out["status"])
		assert.Equal(t, float64(0), out["current"])
		assert.Equal(t, float64(1), out["total"])
		assert.Equal(t, "nope", out["task_id"])
	})

	t.Run("missing task id", func(t *testing.T) {
		_, err := callTool(t, s.handleGetSplitProgress, "get_split_progress", map[string]interface{}{})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestListSegments(t *testing.T) {
	s := setupTestServer(t, nil)
	long := strings.Repeat("é", 120)
	id := registerDoc(t, s, "doc.txt", "short one\n\n"+long+"\n\nthird\n\nfourth")
	splitAndWait(t, s, map[string]interface{}{"document_id": id})

	t.Run("preview is capped", func(t *testing.T) {
		out := mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{"document_id": id})
		segments := out["segments"].([]interface{})
		require.Len(t, segments, 4)

		short := segments[0].(map[string]interface{})
		assert.Equal(t, "short one", short["content"])

		capped := segments[1].(map[string]interface{})
		assert.Equal(t, strings.Repeat("é", 95)+"...", capped["content"])
		assert.Equal(t, long, capped["full_content"])
		assert.Equal(t, float64(120), capped["length"])
	})

	t.Run("pagination", func(t *testing.T) {
		out := mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{
			"document_id": id,
			"page":        float64(2),
			"page_size":   float64(3),
		})
		assert.Equal(t, float64(4), out["total"])
		segments := out["segments"].([]interface{})
		require.Len(t, segments, 1)
		assert.Equal(t, "fourth", segments[0].(map[string]interface{})["content"])
	})

	t.Run("page past the end", func(t *testing.T) {
		out := mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{
			"document_id": id,
			"page":        float64(9),
		})
		assert.Empty(t, out["segments"])
	})

	t.Run("invalid page size", func(t *testing.T) {
		_, err := callTool(t, s.handleListSegments, "list_segments", map[string]interface{}{
			"document_id": id,
			"page_size":   float64(500),
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := callTool(t, s.handleListSegments, "list_segments", map[string]interface{}{"document_id": float64(999)})
		requireMCPError(t, err, ErrorCodeDocumentNotFound)
	})
}

func TestDeleteSegment(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.txt", "keep\n\ndrop")
	splitAndWait(t, s, map[string]interface{}{"document_id": id})

	list := mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{"document_id": id})
	segments := list["segments"].([]interface{})
	require.Len(t, segments, 2)
	segmentID := segments[1].(map[string]interface{})["segment_id"]

	out := mustCall(t, s.handleDeleteSegment, "delete_segment", map[string]interface{}{"segment_id": segmentID})
	assert.Equal(t, true, out["deleted"])

	list = mustCall(t, s.handleListSegments, "list_segments", map[string]interface{}{"document_id": id})
	assert.Equal(t, float64(1), list["total"])

	_, err := callTool(t, s.handleDeleteSegment, "delete_segment", map[string]interface{}{"segment_id": segmentID})
	requireMCPError(t, err, ErrorCodeSegmentNotFound)
}

func TestSearchSegments(t *testing.T) {
	s := setupTestServer(t, nil)
	first := registerDoc(t, s, "a.txt", "the quick brown fox\n\nlazy dogs sleep")
	second := registerDoc(t, s, "b.txt", "a fox in the snow")
	splitAndWait(t, s, map[string]interface{}{"document_id": first})
	splitAndWait(t, s, map[string]interface{}{"document_id": second})

	t.Run("all documents", func(t *testing.T) {
		out := mustCall(t, s.handleSearchSegments, "search_segments", map[string]interface{}{"query": "fox"})
		assert.Equal(t, float64(2), out["count"])
		for _, r := range out["results"].([]interface{}) {
			assert.Contains(t, r.(map[string]interface{})["full_content"], "fox")
		}
	})

	t.Run("one document", func(t *testing.T) {
		out := mustCall(t, s.handleSearchSegments, "search_segments", map[string]interface{}{
			"query":       "fox",
			"document_id": second,
		})
		assert.Equal(t, float64(1), out["count"])
		result := out["results"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, second, result["document_id"])
	})

	t.Run("no match", func(t *testing.T) {
		out := mustCall(t, s.handleSearchSegments, "search_segments", map[string]interface{}{"query": "zebra"})
		assert.Equal(t, float64(0), out["count"])
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchSegments, "search_segments", map[string]interface{}{"query": "  "})
		requireMCPError(t, err, ErrorCodeEmptyQuery)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchSegments, "search_segments", map[string]interface{}{
			"query": "fox",
			"limit": float64(0),
		})
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestGetDocumentStats(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.txt", "one two\nthree\n\nfour five six")

	out := mustCall(t, s.handleGetDocumentStats, "get_document_stats", map[string]interface{}{"document_id": id})
	assert.Equal(t, "pending", out["status"])
	assert.Equal(t, float64(0), out["segment_count"])

	stats := out["stats"].(map[string]interface{})
	assert.Equal(t, float64(6), stats["total_words"])
	assert.Equal(t, float64(2), stats["total_paragraphs"])

	splitAndWait(t, s, map[string]interface{}{"document_id": id})
	out = mustCall(t, s.handleGetDocumentStats, "get_document_stats", map[string]interface{}{"document_id": id})
	assert.Equal(t, "chunked", out["status"])
	assert.Equal(t, float64(2), out["segment_count"])

	_, err := callTool(t, s.handleGetDocumentStats, "get_document_stats", map[string]interface{}{"document_id": float64(404)})
	requireMCPError(t, err, ErrorCodeDocumentNotFound)
}

func TestGetStatus(t *testing.T) {
	s := setupTestServer(t, nil)
	id := registerDoc(t, s, "doc.txt", "a\n\nb\n\nc")
	registerDoc(t, s, "other.txt", "x")
	splitAndWait(t, s, map[string]interface{}{"document_id": id})

	out := mustCall(t, s.handleGetStatus, "get_status", nil)
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["documents"])
	assert.Equal(t, float64(1), stats["chunked_documents"])
	assert.Equal(t, float64(3), stats["segments"])
	assert.Equal(t, float64(0), out["running_tasks"])

	store := out["storage"].(map[string]interface{})
	assert.Equal(t, storage.CurrentSchemaVersion, store["schema_version"])
	assert.Equal(t, storage.DriverName, store["driver"])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", preview(""))
	assert.Equal(t, strings.Repeat("a", 95), preview(strings.Repeat("a", 95)))
	assert.Equal(t, strings.Repeat("a", 95)+"...", preview(strings.Repeat("a", 96)))
}

func TestProgressResponse(t *testing.T) {
	failed := types.Progress{
		TaskID:     "t1",
		DocumentID: 4,
		Total:      3,
		Status:     types.TaskError,
		Error:      "persistence failure",
		RolledBack: true,
	}
	out := progressResponse(failed)
	assert.Equal(t, 0, out["current"])
	assert.Equal(t, true, out["rolled_back"])
	assert.Equal(t, "persistence failure", out["error"])

	out = progressResponse(types.NotStartedProgress("t2"))
	assert.NotContains(t, out, "rolled_back")
	assert.NotContains(t, out, "document_id")
	assert.Equal(t, types.TaskNotStarted, out["status"])
}

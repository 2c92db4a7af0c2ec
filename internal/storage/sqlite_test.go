package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestDocument(t *testing.T, s Storage, name string) *types.Document {
	t.Helper()

	doc := &types.Document{
		Filename:  name,
		Path:      "/data/" + name,
		Type:      types.DocumentMarkdown,
		SizeBytes: 128,
	}
	require.NoError(t, s.CreateDocument(context.Background(), doc))
	return doc
}

func insertTestSegments(t *testing.T, s Storage, documentID int64, contents ...string) []*types.Segment {
	t.Helper()

	segments := make([]*types.Segment, 0, len(contents))
	for i, c := range contents {
		seg := &types.Segment{DocumentID: documentID, Index: i, Content: c}
		require.NoError(t, s.InsertSegment(context.Background(), seg))
		segments = append(segments, seg)
	}
	return segments
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docchunk.db")
	ctx := context.Background()

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	doc := createTestDocument(t, first, "a.md")
	require.NoError(t, first.Close())

	// migrations are not re-applied and data survives
	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.md", got.Filename)
}

func TestCreateAndGetDocument(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	doc := createTestDocument(t, storage, "guide.md")
	assert.Greater(t, doc.ID, int64(0))
	assert.Equal(t, types.DocumentPending, doc.Status)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "guide.md", got.Filename)
	assert.Equal(t, "/data/guide.md", got.Path)
	assert.Equal(t, types.DocumentMarkdown, got.Type)
	assert.Equal(t, int64(128), got.SizeBytes)
	assert.Equal(t, types.DocumentPending, got.Status)
}

func TestGetDocument_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetDocument(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocuments(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	docs, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	createTestDocument(t, storage, "a.md")
	createTestDocument(t, storage, "b.md")

	docs, err = storage.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Filename)
	assert.Equal(t, "b.md", docs[1].Filename)
}

func TestUpdateDocumentStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	doc := createTestDocument(t, storage, "a.md")
	require.NoError(t, storage.UpdateDocumentStatus(ctx, doc.ID, types.DocumentChunked))

	got, err := storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentChunked, got.Status)

	err = storage.UpdateDocumentStatus(ctx, 999, types.DocumentChunked)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocument_CascadesToSegments(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	doc := createTestDocument(t, storage, "a.md")
	segs := insertTestSegments(t, storage, doc.ID, "alpha", "beta")

	require.NoError(t, storage.DeleteDocument(ctx, doc.ID))

	_, err := storage.GetSegment(ctx, segs[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	results, err := storage.SearchSegments(ctx, "alpha", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.ErrorIs(t, storage.DeleteDocument(ctx, doc.ID), ErrNotFound)
}

func TestInsertSegment(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, storage, "a.md")

	seg := &types.Segment{DocumentID: doc.ID, Index: 0, Content: "first block"}
	require.NoError(t, storage.InsertSegment(ctx, seg))
	assert.Greater(t, seg.ID, int64(0))

	got, err := storage.GetSegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.DocumentID)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, "first block", got.Content)

	t.Run("duplicate index rejected", func(t *testing.T) {
		dup := &types.Segment{DocumentID: doc.ID, Index: 0, Content: "again"}
		assert.Error(t, storage.InsertSegment(ctx, dup))
	})

	t.Run("empty content rejected", func(t *testing.T) {
		empty := &types.Segment{DocumentID: doc.ID, Index: 5, Content: "  \n"}
		assert.ErrorIs(t, storage.InsertSegment(ctx, empty), types.ErrEmptyContent)
	})

	t.Run("unknown document rejected", func(t *testing.T) {
		orphan := &types.Segment{DocumentID: 999, Index: 0, Content: "x"}
		assert.Error(t, storage.InsertSegment(ctx, orphan))
	})
}

func TestListSegments_Pagination(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, storage, "a.md")

	contents := make([]string, 25)
	for i := range contents {
		contents[i] = fmt.Sprintf("segment %d", i)
	}
	insertTestSegments(t, storage, doc.ID, contents...)

	page, err := storage.ListSegments(ctx, doc.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, 0, page[0].Index)
	assert.Equal(t, 9, page[9].Index)

	page, err = storage.ListSegments(ctx, doc.ID, 20, 10)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "segment 24", page[4].Content)

	all, err := storage.ListSegments(ctx, doc.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 25)

	count, err := storage.CountSegments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, count)
}

func TestDeleteSegment(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, storage, "a.md")
	segs := insertTestSegments(t, storage, doc.ID, "one", "two", "three")

	require.NoError(t, storage.DeleteSegment(ctx, segs[1].ID))
	assert.ErrorIs(t, storage.DeleteSegment(ctx, segs[1].ID), ErrNotFound)

	remaining, err := storage.ListSegments(ctx, doc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "one", remaining[0].Content)
	assert.Equal(t, "three", remaining[1].Content)

	results, err := storage.SearchSegments(ctx, "two", doc.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteSegmentsByDocument(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	a := createTestDocument(t, storage, "a.md")
	b := createTestDocument(t, storage, "b.md")
	insertTestSegments(t, storage, a.ID, "a1", "a2", "a3")
	insertTestSegments(t, storage, b.ID, "b1")

	n, err := storage.DeleteSegmentsByDocument(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	countA, err := storage.CountSegments(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, countA)

	countB, err := storage.CountSegments(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countB)

	n, err = storage.DeleteSegmentsByDocument(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchSegments(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	a := createTestDocument(t, storage, "a.md")
	b := createTestDocument(t, storage, "b.md")
	insertTestSegments(t, storage, a.ID,
		"installation requires a database",
		"the database stores segments and the database is sqlite",
		"unrelated text")
	insertTestSegments(t, storage, b.ID, "another database mention")

	t.Run("ranks by relevance", func(t *testing.T) {
		results, err := storage.SearchSegments(ctx, "database", 0, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("filters by document", func(t *testing.T) {
		results, err := storage.SearchSegments(ctx, "database", b.ID, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, b.ID, results[0].Segment.DocumentID)
	})

	t.Run("all terms required", func(t *testing.T) {
		results, err := storage.SearchSegments(ctx, "database sqlite", 0, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 1, results[0].Segment.Index)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := storage.SearchSegments(ctx, "database", 0, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("operators are literal", func(t *testing.T) {
		results, err := storage.SearchSegments(ctx, `database OR "unrelated`, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := storage.SearchSegments(ctx, "   ", 0, 10)
		assert.Error(t, err)
	})
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{"hello world", `"hello" "world"`},
		{`say "hi"`, `"say" """hi"""`},
		{"a* OR (b)", `"a*" "OR" "(b)"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFTSQuery(tt.in), "input %q", tt.in)
	}
}

func TestGetStats(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	a := createTestDocument(t, storage, "a.md")
	createTestDocument(t, storage, "b.md")
	insertTestSegments(t, storage, a.ID, "x", "y")
	require.NoError(t, storage.UpdateDocumentStatus(ctx, a.ID, types.DocumentChunked))

	stats, err := storage.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 1, stats.ChunkedDocuments)
	assert.Equal(t, 2, stats.Segments)
	assert.Equal(t, CurrentSchemaVersion, stats.SchemaVersion)
	assert.Equal(t, DriverName, stats.DriverName)
	assert.Equal(t, BuildMode, stats.BuildMode)
}

func TestTransaction_Commit(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, storage, "a.md")
	insertTestSegments(t, storage, doc.ID, "old 0", "old 1", "old 2")

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	n, err := tx.DeleteSegmentsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	insertTestSegments(t, tx, doc.ID, "new 0", "new 1")
	require.NoError(t, tx.UpdateDocumentStatus(ctx, doc.ID, types.DocumentChunked))

	// reads inside the transaction see its writes
	count, err := tx.CountSegments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, tx.Commit())

	segs, err := storage.ListSegments(ctx, doc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "new 0", segs[0].Content)

	got, err := storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DocumentChunked, got.Status)
}

func TestTransaction_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, storage, "a.md")
	insertTestSegments(t, storage, doc.ID, "old 0", "old 1")

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.DeleteSegmentsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	insertTestSegments(t, tx, doc.ID, "new 0")
	require.NoError(t, tx.Rollback())

	segs, err := storage.ListSegments(ctx, doc.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "old 0", segs[0].Content)

	// the FTS index is rolled back with the table
	results, err := storage.SearchSegments(ctx, "old", doc.ID, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	results, err = storage.SearchSegments(ctx, "new", doc.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTransaction_NestedNotSupported(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	assert.NoError(t, tx.Close())
}

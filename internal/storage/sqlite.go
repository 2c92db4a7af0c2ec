package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist
var ErrNotFound = errors.New("not found")

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// OpenDatabase opens a SQLite database with appropriate settings. It does
// not apply migrations; NewSQLiteStorage does.
func OpenDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single connection: one writer, and ":memory:" databases stay shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := OpenDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. Every operation on the returned Tx runs
// on the transaction's connection; do not call the parent storage until the
// transaction is finished.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Document operations

func (s *SQLiteStorage) createDocumentWithQuerier(ctx context.Context, q querier, doc *types.Document) error {
	if doc.Status == "" {
		doc.Status = types.DocumentPending
	}
	query := `
		INSERT INTO documents (filename, path, doc_type, size_bytes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		doc.Filename, doc.Path, string(doc.Type), doc.SizeBytes, string(doc.Status), now, now)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *types.Document) error {
	return s.createDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `id, filename, path, doc_type, size_bytes, status, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*types.Document, error) {
	var (
		doc     types.Document
		docType string
		status  string
	)
	err := row.Scan(&doc.ID, &doc.Filename, &doc.Path, &docType, &doc.SizeBytes,
		&status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Type = types.DocumentType(docType)
	doc.Status = types.DocumentStatus(status)
	return &doc, nil
}

func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, documentID int64) (*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	doc, err := scanDocument(q.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, documentID int64) (*types.Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier) ([]*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY id`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*types.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) updateDocumentStatusWithQuerier(ctx context.Context, q querier, documentID int64, status types.DocumentStatus) error {
	result, err := q.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) UpdateDocumentStatus(ctx context.Context, documentID int64, status types.DocumentStatus) error {
	return s.updateDocumentStatusWithQuerier(ctx, s.querier(), documentID, status)
}

func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, documentID int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), documentID)
}

// Segment operations

func (s *SQLiteStorage) insertSegmentWithQuerier(ctx context.Context, q querier, segment *types.Segment) error {
	if err := segment.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO segments (document_id, segment_index, content, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now().UTC()
	err := q.QueryRowContext(ctx, query,
		segment.DocumentID, segment.Index, segment.Content, now).Scan(&segment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert segment %d: %w", segment.Index, err)
	}
	segment.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertSegment(ctx context.Context, segment *types.Segment) error {
	return s.insertSegmentWithQuerier(ctx, s.querier(), segment)
}

const segmentColumns = `id, document_id, segment_index, content, created_at`

func scanSegment(row rowScanner) (*types.Segment, error) {
	var seg types.Segment
	if err := row.Scan(&seg.ID, &seg.DocumentID, &seg.Index, &seg.Content, &seg.CreatedAt); err != nil {
		return nil, err
	}
	return &seg, nil
}

func (s *SQLiteStorage) getSegmentWithQuerier(ctx context.Context, q querier, segmentID int64) (*types.Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE id = ?`
	seg, err := scanSegment(q.QueryRowContext(ctx, query, segmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (s *SQLiteStorage) GetSegment(ctx context.Context, segmentID int64) (*types.Segment, error) {
	return s.getSegmentWithQuerier(ctx, s.querier(), segmentID)
}

// listSegmentsWithQuerier returns segments in index order. A limit <= 0
// returns everything from offset on.
func (s *SQLiteStorage) listSegmentsWithQuerier(ctx context.Context, q querier, documentID int64, offset, limit int) ([]*types.Segment, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT ` + segmentColumns + `
		FROM segments
		WHERE document_id = ?
		ORDER BY segment_index
		LIMIT ? OFFSET ?
	`
	rows, err := q.QueryContext(ctx, query, documentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	segments := make([]*types.Segment, 0)
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func (s *SQLiteStorage) ListSegments(ctx context.Context, documentID int64, offset, limit int) ([]*types.Segment, error) {
	return s.listSegmentsWithQuerier(ctx, s.querier(), documentID, offset, limit)
}

func (s *SQLiteStorage) countSegmentsWithQuerier(ctx context.Context, q querier, documentID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments WHERE document_id = ?", documentID).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountSegments(ctx context.Context, documentID int64) (int, error) {
	return s.countSegmentsWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) deleteSegmentWithQuerier(ctx context.Context, q querier, segmentID int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM segments WHERE id = ?", segmentID)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	return requireAffected(result)
}

func (s *SQLiteStorage) DeleteSegment(ctx context.Context, segmentID int64) error {
	return s.deleteSegmentWithQuerier(ctx, s.querier(), segmentID)
}

func (s *SQLiteStorage) deleteSegmentsByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM segments WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete segments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStorage) DeleteSegmentsByDocument(ctx context.Context, documentID int64) (int, error) {
	return s.deleteSegmentsByDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) SearchSegments(ctx context.Context, query string, documentID int64, limit int) ([]SearchResult, error) {
	return searchSegments(ctx, s.querier(), query, documentID, limit)
}

// Status operations

func (s *SQLiteStorage) getStatsWithQuerier(ctx context.Context, q querier) (*Stats, error) {
	stats := &Stats{DriverName: DriverName, BuildMode: BuildMode}

	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM documents
	`, string(types.DocumentChunked)).Scan(&stats.Documents, &stats.ChunkedDocuments)
	if err != nil {
		return nil, err
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM segments").Scan(&stats.Segments); err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	version, err := currentSchemaVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	stats.SchemaVersion = version.String()

	return stats, nil
}

func (s *SQLiteStorage) GetStats(ctx context.Context) (*Stats, error) {
	return s.getStatsWithQuerier(ctx, s.querier())
}

// requireAffected maps a write that touched no rows to ErrNotFound
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

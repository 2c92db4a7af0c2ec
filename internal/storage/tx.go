package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// Reads go through the transaction too: the pool has a single connection,
// which the open transaction holds.

func (t *sqliteTx) CreateDocument(ctx context.Context, doc *types.Document) error {
	return t.storage.createDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, documentID int64) (*types.Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) ListDocuments(ctx context.Context) ([]*types.Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpdateDocumentStatus(ctx context.Context, documentID int64, status types.DocumentStatus) error {
	return t.storage.updateDocumentStatusWithQuerier(ctx, t.querier(), documentID, status)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, documentID int64) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) InsertSegment(ctx context.Context, segment *types.Segment) error {
	return t.storage.insertSegmentWithQuerier(ctx, t.querier(), segment)
}

func (t *sqliteTx) GetSegment(ctx context.Context, segmentID int64) (*types.Segment, error) {
	return t.storage.getSegmentWithQuerier(ctx, t.querier(), segmentID)
}

func (t *sqliteTx) ListSegments(ctx context.Context, documentID int64, offset, limit int) ([]*types.Segment, error) {
	return t.storage.listSegmentsWithQuerier(ctx, t.querier(), documentID, offset, limit)
}

func (t *sqliteTx) CountSegments(ctx context.Context, documentID int64) (int, error) {
	return t.storage.countSegmentsWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) DeleteSegment(ctx context.Context, segmentID int64) error {
	return t.storage.deleteSegmentWithQuerier(ctx, t.querier(), segmentID)
}

func (t *sqliteTx) DeleteSegmentsByDocument(ctx context.Context, documentID int64) (int, error) {
	return t.storage.deleteSegmentsByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) SearchSegments(ctx context.Context, query string, documentID int64, limit int) ([]SearchResult, error) {
	return searchSegments(ctx, t.querier(), query, documentID, limit)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*Stats, error) {
	return t.storage.getStatsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}

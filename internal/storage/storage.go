package storage

import (
	"context"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

// Storage defines the interface for persisting documents and their segments
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, documentID int64) (*types.Document, error)
	ListDocuments(ctx context.Context) ([]*types.Document, error)
	UpdateDocumentStatus(ctx context.Context, documentID int64, status types.DocumentStatus) error
	DeleteDocument(ctx context.Context, documentID int64) error

	// Segment operations
	InsertSegment(ctx context.Context, segment *types.Segment) error
	GetSegment(ctx context.Context, segmentID int64) (*types.Segment, error)
	ListSegments(ctx context.Context, documentID int64, offset, limit int) ([]*types.Segment, error)
	CountSegments(ctx context.Context, documentID int64) (int, error)
	DeleteSegment(ctx context.Context, segmentID int64) error
	DeleteSegmentsByDocument(ctx context.Context, documentID int64) (deletedCount int, err error)

	// Search operations
	SearchSegments(ctx context.Context, query string, documentID int64, limit int) ([]SearchResult, error)

	// Status operations
	GetStats(ctx context.Context) (*Stats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// SearchResult is one full-text match. Higher scores rank better.
type SearchResult struct {
	Segment *types.Segment
	Score   float64
}

// Stats contains counts across the whole database
type Stats struct {
	Documents        int
	ChunkedDocuments int
	Segments         int
	SizeMB           float64
	SchemaVersion    string
	DriverName       string
	BuildMode        string
}

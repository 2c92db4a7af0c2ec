package types

import "errors"

// Domain errors shared by the extractor, chunker, runner and MCP layers
var (
	// Extraction errors
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrExtraction      = errors.New("extraction failed")

	// Runner errors
	ErrDocumentNotFound = errors.New("document not found")
	ErrPersistence      = errors.New("segment persistence failed")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSplitInProgress  = errors.New("a split is already running for this document")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid split configuration")
	ErrEmptyContent  = errors.New("content cannot be empty")
)

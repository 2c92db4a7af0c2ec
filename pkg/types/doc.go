// Package types provides shared type definitions for the docchunk MCP server.
//
// Documents are registered files with a declared type (txt, md, docx, pdf).
// A chunking task turns a document into an ordered list of Segments according
// to a SplitConfig:
//
//	cfg := types.NewSplitConfig(types.MethodAuto, 800, 20)
//	// cfg.BlockSize is clamped to 100..5000, cfg.Overlap to 0..99
//
// Task progress is reported as a Progress snapshot whose Status moves from
// processing to either done or error and never changes afterwards.
//
// Errors are sentinel values (ErrUnsupportedType, ErrDocumentNotFound,
// ErrExtraction, ErrPersistence, ...) meant to be wrapped with %w and checked
// with errors.Is.
package types

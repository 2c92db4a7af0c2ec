// Package storage provides SQLite-based persistence for documents and the
// segments they are split into.
//
// # Database Schema
//
// Tables:
//   - documents: registered files (name, path, type, size, status)
//   - segments: ordered blocks of a document, unique per (document, index)
//   - segments_fts: FTS5 index over segment content, kept in sync by triggers
//   - schema_version: applied migrations
//
// Deleting a document cascades to its segments.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("docchunk.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	doc := &types.Document{Filename: "a.md", Path: "/data/a.md", Type: types.DocumentMarkdown}
//	if err := db.CreateDocument(ctx, doc); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Replacing a document's segments is done in one transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if _, err := tx.DeleteSegmentsByDocument(ctx, doc.ID); err != nil {
//	    return err
//	}
//	for i, block := range blocks {
//	    seg := &types.Segment{DocumentID: doc.ID, Index: i, Content: block}
//	    if err := tx.InsertSegment(ctx, seg); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// The pool holds a single connection. While a transaction is open, use
// only the Tx; calls on the parent storage block until it finishes.
//
// # Search
//
// SearchSegments ranks matches with BM25. Every whitespace-separated term
// of the query must appear; FTS5 operators in the query are matched as
// plain words.
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Migrations are versioned with semantic versions and applied in order on
// open. The highest applied version is the schema version.
package storage

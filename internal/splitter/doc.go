// Package splitter runs document chunking tasks in the background.
//
// A task loads a registered document, extracts its text, chunks it and
// replaces the document's stored segments. Callers receive a task id
// immediately and poll it for progress.
//
// # Basic Usage
//
//	r, err := splitter.New(store, extractor.New(), &splitter.Config{
//	    CommitMode: types.CommitAtomic,
//	})
//
//	taskID, err := r.Submit(ctx, documentID, types.DefaultSplitConfig())
//	p, err := r.Poll(taskID)
//	fmt.Printf("%d/%d %s\n", p.Current, p.Total, p.Status)
//
// # Progress
//
// A new task starts in processing state with current 0 and total 1. Once
// the block plan is known, total is set to the number of blocks and current
// advances after each segment is stored, so current never exceeds the
// number of persisted segments. Finished snapshots are kept by the
// progress tracker until they expire or are evicted.
//
// # Commit Modes
//
// In incremental mode (the default) every statement commits on its own and
// a failure leaves the segments written so far. In atomic mode the old
// segments are deleted and the new ones inserted in a single transaction; a
// failed task leaves the previous segment set in place, and its final
// snapshot reports current 0 with RolledBack set.
//
// # Concurrency
//
// Tasks for different documents run in parallel. A second submission for
// a document whose task is still running fails with
// types.ErrSplitInProgress.
package splitter

// Package progress stores pollable snapshots of chunking tasks.
//
// A task is created in processing state with current 0 and total 1. The
// runner updates it as segments are written. Once the status turns done or
// error the snapshot is frozen: further updates are rejected with
// ErrTaskFinished and the snapshot moves to a size-bounded cache whose
// entries expire after the retention period.
//
//	tr := progress.New(1024, time.Hour)
//	tr.Create(taskID, documentID)
//	tr.Update(taskID, func(p *types.Progress) { p.Total = 10 })
//	snap, err := tr.Get(taskID) // copy, safe to keep
//
// All methods are safe for concurrent use.
package progress

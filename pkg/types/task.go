package types

import "time"

// TaskStatus is the state of a chunking task
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskError      TaskStatus = "error"
)

// Terminal reports whether no further transition can happen
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskError
}

func (s TaskStatus) String() string {
	return string(s)
}

// Progress is a point-in-time snapshot of a chunking task
type Progress struct {
	TaskID     string
	DocumentID int64
	Current    int
	Total      int
	Status     TaskStatus
	Error      string

	// RolledBack is set when a failed task's writes were discarded; Current
	// then counts only segments that are still stored, which is zero.
	RolledBack bool

	// Method actually applied; differs from the requested one when the
	// segmenter fell back to paragraph splitting.
	Method         SplitMethod
	MethodFallback bool

	StartedAt  time.Time
	FinishedAt time.Time
}

// NotStartedProgress is the snapshot reported for an unknown task identifier
func NotStartedProgress(taskID string) Progress {
	return Progress{TaskID: taskID, Total: 1, Status: TaskNotStarted}
}

package progress

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dshills/docchunk-mcp/pkg/types"
)

const (
	// DefaultMaxRetained bounds how many finished snapshots are kept
	DefaultMaxRetained = 1024

	// DefaultRetention is how long a finished snapshot stays pollable
	DefaultRetention = time.Hour
)

// ErrTaskFinished is returned when updating a task that already reached a
// terminal status
var ErrTaskFinished = errors.New("task already finished")

// Tracker holds progress for running and recently finished tasks.
// Running tasks are kept until they finish; finished snapshots are retained
// in a bounded cache and expire after the retention period.
type Tracker struct {
	mu       sync.Mutex
	active   map[string]*types.Progress
	finished *expirable.LRU[string, types.Progress]
	now      func() time.Time
}

// New creates a tracker. Non-positive arguments fall back to the defaults.
func New(maxRetained int, retention time.Duration) *Tracker {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		active:   make(map[string]*types.Progress),
		finished: expirable.NewLRU[string, types.Progress](maxRetained, nil, retention),
		now:      time.Now,
	}
}

// Create registers a new task in processing state with current 0 and total 1
func (t *Tracker) Create(taskID string, documentID int64) (types.Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.active[taskID]; ok {
		return types.Progress{}, fmt.Errorf("task %s already exists", taskID)
	}
	if _, ok := t.finished.Peek(taskID); ok {
		return types.Progress{}, fmt.Errorf("task %s already exists", taskID)
	}

	p := &types.Progress{
		TaskID:     taskID,
		DocumentID: documentID,
		Current:    0,
		Total:      1,
		Status:     types.TaskProcessing,
		StartedAt:  t.now(),
	}
	t.active[taskID] = p
	return *p, nil
}

// Update applies fn to a running task. When fn moves the task to a terminal
// status the snapshot is frozen and moved to the retention cache.
func (t *Tracker) Update(taskID string, fn func(*types.Progress)) (types.Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.active[taskID]
	if !ok {
		if _, done := t.finished.Peek(taskID); done {
			return types.Progress{}, fmt.Errorf("%w: %s", ErrTaskFinished, taskID)
		}
		return types.Progress{}, fmt.Errorf("%w: %s", types.ErrTaskNotFound, taskID)
	}

	fn(p)
	// identity fields are owned by the tracker
	p.TaskID = taskID

	if p.Status.Terminal() {
		if p.FinishedAt.IsZero() {
			p.FinishedAt = t.now()
		}
		delete(t.active, taskID)
		t.finished.Add(taskID, *p)
	}
	return *p, nil
}

// Get returns a copy of the latest snapshot for taskID
func (t *Tracker) Get(taskID string) (types.Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.active[taskID]; ok {
		return *p, nil
	}
	if p, ok := t.finished.Get(taskID); ok {
		return p, nil
	}
	return types.Progress{}, fmt.Errorf("%w: %s", types.ErrTaskNotFound, taskID)
}

// Evict drops a finished snapshot. Running tasks cannot be evicted.
func (t *Tracker) Evict(taskID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.finished.Remove(taskID)
}

// Running reports the number of tasks not yet finished
func (t *Tracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.active)
}

// Len reports the number of tracked tasks, running and retained
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.active) + t.finished.Len()
}

package splitter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dshills/docchunk-mcp/internal/chunker"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/progress"
	"github.com/dshills/docchunk-mcp/internal/storage"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

// ErrClosed is returned by Submit after Close has been called
var ErrClosed = errors.New("runner is closed")

// Extractor reads a document's text
type Extractor interface {
	Extract(ctx context.Context, path string, docType types.DocumentType) (string, error)
}

// Config contains configuration for the runner
type Config struct {
	CommitMode types.CommitMode  // default: incremental
	Limits     types.SplitLimits // block size range (default: 100-5000)
	Tracker    *progress.Tracker // default: progress.New(0, 0)
	Metrics    *metrics.Metrics  // optional
}

// Runner executes chunking tasks in the background: extract -> chunk -> store.
// Callers submit a document and poll the returned task id for progress.
type Runner struct {
	storage   storage.Storage
	extractor Extractor
	chunker   *chunker.Chunker
	tracker   *progress.Tracker
	metrics   *metrics.Metrics
	locks     documentLocks

	commitMode types.CommitMode
	limits     types.SplitLimits

	// background tasks outlive the request that submitted them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	done   map[string]chan struct{}
}

// New creates a new Runner instance
func New(store storage.Storage, extractor Extractor, config *Config) (*Runner, error) {
	if config == nil {
		config = &Config{}
	}

	mode := config.CommitMode
	if mode == "" {
		mode = types.CommitIncremental
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: commit mode %q", types.ErrInvalidConfig, mode)
	}

	limits := config.Limits
	if limits == (types.SplitLimits{}) {
		limits = types.DefaultSplitLimits()
	}
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	tracker := config.Tracker
	if tracker == nil {
		tracker = progress.New(0, 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		storage:    store,
		extractor:  extractor,
		chunker:    chunker.New(),
		tracker:    tracker,
		metrics:    config.Metrics,
		commitMode: mode,
		limits:     limits,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(map[string]chan struct{}),
	}, nil
}

// Limits returns the block size range requests are clamped to
func (r *Runner) Limits() types.SplitLimits {
	return r.limits
}

// Submit starts splitting documentID in the background and returns the new
// task id immediately. The task starts in processing state with current 0
// and total 1. Only one task per document may run at a time; a second
// submission fails with types.ErrSplitInProgress.
func (r *Runner) Submit(ctx context.Context, documentID int64, cfg types.SplitConfig) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", ErrClosed
	}
	cfg = cfg.Normalize(r.limits)

	if !r.locks.TryAcquire(documentID) {
		return "", fmt.Errorf("%w: document %d", types.ErrSplitInProgress, documentID)
	}

	taskID := uuid.NewString()
	if _, err := r.tracker.Create(taskID, documentID); err != nil {
		r.locks.Release(documentID)
		return "", err
	}

	ch := make(chan struct{})
	r.done[taskID] = ch

	r.metrics.TaskStarted()
	r.wg.Add(1)

	// keep the caller's logger but not its cancellation
	taskCtx := logger.ContextWithLogger(r.ctx, logger.FromContext(ctx))
	go r.run(taskCtx, taskID, documentID, cfg, ch)

	return taskID, nil
}

// Poll returns the latest snapshot of a task. Unknown or expired ids fail
// with types.ErrTaskNotFound.
func (r *Runner) Poll(taskID string) (types.Progress, error) {
	return r.tracker.Get(taskID)
}

// Wait blocks until the task finishes or ctx ends, then returns its latest
// snapshot
func (r *Runner) Wait(ctx context.Context, taskID string) (types.Progress, error) {
	r.mu.Lock()
	ch, ok := r.done[taskID]
	r.mu.Unlock()

	if ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return types.Progress{}, ctx.Err()
		}
	}
	return r.tracker.Get(taskID)
}

// Forget drops a finished task's snapshot
func (r *Runner) Forget(taskID string) bool {
	return r.tracker.Evict(taskID)
}

// Running reports how many tasks are still processing
func (r *Runner) Running() int {
	return r.tracker.Running()
}

// Close stops accepting tasks and waits for running ones. If ctx ends
// first, running tasks are cancelled and finish with an error status.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-finished
		return ctx.Err()
	}
}

// run executes one task and records its terminal status
func (r *Runner) run(ctx context.Context, taskID string, documentID int64, cfg types.SplitConfig, done chan struct{}) {
	defer r.wg.Done()

	start := time.Now()
	log := logger.FromContext(ctx).With("task_id", taskID, "document_id", documentID)
	log.Debug("split started", "method", cfg.Method, "block_size", cfg.BlockSize,
		"overlap", cfg.Overlap, "commit_mode", r.commitMode)

	written, err := r.execute(ctx, taskID, documentID, cfg, log)

	status := types.TaskDone
	if err != nil {
		status = types.TaskError
	}

	// a caller that observes the terminal status may resubmit right away
	r.locks.Release(documentID)

	_, uerr := r.tracker.Update(taskID, func(p *types.Progress) {
		p.Status = status
		if err != nil {
			p.Error = err.Error()
			if p.Current > written {
				p.Current = written
				p.RolledBack = true
			}
		}
	})
	if uerr != nil {
		log.Error("failed to record task status", "error", uerr)
	}

	elapsed := time.Since(start)
	r.metrics.SegmentsWritten(written)
	r.metrics.TaskFinished(status, elapsed)

	if err != nil {
		log.Error("split failed", "error", err, "segments_written", written, "duration", elapsed)
	} else {
		log.Info("split finished", "segments", written, "duration", elapsed)
	}

	r.mu.Lock()
	delete(r.done, taskID)
	r.mu.Unlock()
	close(done)
}

// execute runs the pipeline and returns the number of segments that
// remain persisted
func (r *Runner) execute(ctx context.Context, taskID string, documentID int64, cfg types.SplitConfig, log *charmlog.Logger) (int, error) {
	doc, err := r.storage.GetDocument(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("%w: %d", types.ErrDocumentNotFound, documentID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: load document %d: %w", types.ErrPersistence, documentID, err)
	}

	text, err := r.extractor.Extract(ctx, doc.Path, doc.Type)
	if err != nil {
		return 0, err
	}

	plan := r.chunker.Chunk(text, cfg)
	if plan.Fallback {
		log.Warn("unknown split method, using paragraph", "requested", cfg.Method)
	}
	if plan.Dropped > 0 {
		log.Debug("dropped short blocks", "count", plan.Dropped, "min_length", cfg.MinLength)
	}

	if _, err := r.tracker.Update(taskID, func(p *types.Progress) {
		p.Total = len(plan.Blocks)
		p.Method = plan.Method
		p.MethodFallback = plan.Fallback
	}); err != nil {
		return 0, err
	}

	if r.commitMode == types.CommitIncremental {
		return r.writeSegments(ctx, r.storage, taskID, doc.ID, plan.Blocks)
	}
	return r.writeAtomic(ctx, taskID, doc.ID, plan.Blocks)
}

// writeAtomic replaces the segments in one transaction. On failure the
// previous segment set is left untouched.
func (r *Runner) writeAtomic(ctx context.Context, taskID string, documentID int64, blocks []string) (int, error) {
	tx, err := r.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", types.ErrPersistence, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	written, err := r.writeSegments(ctx, tx, taskID, documentID, blocks)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %w", types.ErrPersistence, err)
	}
	committed = true
	return written, nil
}

// writeSegments deletes the document's old segments, inserts the new ones
// in order and marks the document chunked. Progress advances only after
// each insert succeeds.
func (r *Runner) writeSegments(ctx context.Context, store storage.Storage, taskID string, documentID int64, blocks []string) (int, error) {
	if _, err := store.DeleteSegmentsByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("%w: delete old segments: %w", types.ErrPersistence, err)
	}

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		seg := &types.Segment{DocumentID: documentID, Index: i, Content: block}
		if err := store.InsertSegment(ctx, seg); err != nil {
			return i, fmt.Errorf("%w: %w", types.ErrPersistence, err)
		}

		if _, err := r.tracker.Update(taskID, func(p *types.Progress) { p.Current = i + 1 }); err != nil {
			return i + 1, err
		}
	}

	if err := store.UpdateDocumentStatus(ctx, documentID, types.DocumentChunked); err != nil {
		return len(blocks), fmt.Errorf("%w: mark document chunked: %w", types.ErrPersistence, err)
	}
	return len(blocks), nil
}

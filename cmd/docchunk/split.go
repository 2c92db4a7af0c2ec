package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docchunk-mcp/internal/extractor"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/pkg/types"
)

type splitOptions struct {
	method    string
	blockSize int
	overlap   int
	minLength int
	docType   string
	workers   int
	print     bool
}

// splitResult is the outcome for one input file
type splitResult struct {
	path     string
	document *types.Document
	progress types.Progress
	err      error
}

func newSplitCmd(c *cli) *cobra.Command {
	opts := &splitOptions{}

	cmd := &cobra.Command{
		Use:   "split FILE...",
		Short: "Register files and split them into segments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, c, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.method, "method", "", "split method: paragraph, heading, table, auto (default from config)")
	flags.IntVar(&opts.blockSize, "block-size", 0, "target characters per segment (default from config)")
	flags.IntVar(&opts.overlap, "overlap", 0, "overlap percentage for oversized blocks (default from config)")
	flags.IntVar(&opts.minLength, "min-length", 0, "drop blocks shorter than this before windowing")
	flags.StringVar(&opts.docType, "type", "", "document type for every file (default: detect)")
	flags.IntVarP(&opts.workers, "workers", "w", 4, "files processed concurrently")
	flags.BoolVar(&opts.print, "print", false, "print the stored segments")

	return cmd
}

// splitConfig applies the flags the user set on top of the configured defaults
func (o *splitOptions) splitConfig(cmd *cobra.Command, defaults types.SplitConfig) types.SplitConfig {
	cfg := defaults
	if cmd.Flags().Changed("method") {
		cfg.Method = types.ParseSplitMethod(o.method)
	}
	if cmd.Flags().Changed("block-size") {
		cfg.BlockSize = o.blockSize
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Overlap = o.overlap
	}
	if cmd.Flags().Changed("min-length") {
		cfg.MinLength = o.minLength
	}
	return cfg
}

func runSplit(cmd *cobra.Command, c *cli, opts *splitOptions, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var declared types.DocumentType
	if opts.docType != "" {
		t, err := types.ParseDocumentType(opts.docType)
		if err != nil {
			return err
		}
		declared = t
	}

	a, err := openApp(c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
	}()

	cfg := opts.splitConfig(cmd, c.cfg.DefaultSplit())
	results := make([]splitResult, len(paths))

	var g errgroup.Group
	if opts.workers > 0 {
		g.SetLimit(opts.workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			results[i] = splitFile(ctx, a, path, declared, cfg)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.err != nil {
			failed++
		}
		printResult(out, r)
		if opts.print && r.err == nil {
			if err := printSegments(ctx, out, a, r.document.ID); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// splitFile registers path, runs a split task to completion and drops the
// task snapshot
func splitFile(ctx context.Context, a *app, path string, declared types.DocumentType, cfg types.SplitConfig) splitResult {
	log := logger.With("path", path)
	result := splitResult{path: path}

	doc, err := extractor.NewDocument(path, declared)
	if err != nil {
		result.err = err
		return result
	}
	if err := a.store.CreateDocument(ctx, doc); err != nil {
		result.err = fmt.Errorf("register: %w", err)
		return result
	}
	result.document = doc

	taskID, err := a.runner.Submit(logger.ContextWithLogger(ctx, log), doc.ID, cfg)
	if err != nil {
		result.err = err
		return result
	}
	defer a.runner.Forget(taskID)

	p, err := a.runner.Wait(ctx, taskID)
	if err != nil {
		result.err = err
		return result
	}
	result.progress = p
	if p.Status == types.TaskError {
		result.err = errors.New(p.Error)
	}
	return result
}

func printResult(out io.Writer, r splitResult) {
	if r.err != nil {
		fmt.Fprintf(out, "%s: error: %v\n", r.path, r.err)
		return
	}

	method := string(r.progress.Method)
	if r.progress.MethodFallback {
		method += " (fallback)"
	}
	fmt.Fprintf(out, "%s: document %d, %d segments, method %s, %v\n",
		r.path, r.document.ID, r.progress.Total, method,
		r.progress.FinishedAt.Sub(r.progress.StartedAt).Round(time.Millisecond))
}

func printSegments(ctx context.Context, out io.Writer, a *app, documentID int64) error {
	segments, err := a.store.ListSegments(ctx, documentID, 0, 0)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		fmt.Fprintf(out, "--- segment %d ---\n%s\n", seg.Index, seg.Content)
	}
	return nil
}

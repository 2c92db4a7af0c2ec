package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/mcp"
	"github.com/dshills/docchunk-mcp/internal/metrics"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), c)
		},
	}

	cmd.Flags().String("metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	_ = c.v.BindPFlag("metrics.address", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runServe(ctx context.Context, c *cli) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Log startup info to stderr (stdout reserved for MCP protocol)
	log := logger.GetDefault()
	log.Info("docchunk MCP server starting", "version", version,
		"build_mode", storage.BuildMode, "driver", storage.DriverName, "db", c.cfg.Storage.DBPath)

	a, err := openApp(c.cfg)
	if err != nil {
		return err
	}

	if addr := c.cfg.Metrics.Address; addr != "" {
		go func() {
			log.Info("metrics listening", "address", addr)
			if err := metrics.Serve(ctx, addr, a.registry); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	server, err := mcp.NewServer(mcp.Options{
		Storage:   a.store,
		Runner:    a.runner,
		Extractor: a.extractor,
		Split:     c.cfg.DefaultSplit(),
	})
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}

	log.Info("MCP server ready, listening on stdio...")
	serveErr := server.Serve(logger.ContextWithLogger(ctx, log))
	if serveErr != nil {
		log.Error("server error", "error", serveErr)
	}

	log.Info("shutting down", "running_tasks", a.runner.Running())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}

	log.Info("Server stopped")
	return serveErr
}

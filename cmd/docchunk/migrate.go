package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the database schema version",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(c, func(db *sql.DB) error {
				return printSchemaVersion(cmd, db)
			})
		},
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(c, func(db *sql.DB) error {
				if err := storage.ApplyMigrations(cmd.Context(), db); err != nil {
					return err
				}
				return printSchemaVersion(cmd, db)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}
			return withDatabase(c, func(db *sql.DB) error {
				log := logger.With("db", c.cfg.Storage.DBPath)
				for i := 0; i < steps; i++ {
					if err := storage.RollbackMigration(cmd.Context(), db); err != nil {
						return fmt.Errorf("rollback %d of %d: %w", i+1, steps, err)
					}
					log.Info("migration rolled back", "step", i+1)
				}
				return printSchemaVersion(cmd, db)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(status, up, down)
	return cmd
}

// withDatabase opens the configured database without migrating it
func withDatabase(c *cli, fn func(db *sql.DB) error) error {
	path := c.cfg.Storage.DBPath
	if path == ":memory:" {
		return errors.New("migrate needs a database file, not :memory:")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := storage.OpenDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func printSchemaVersion(cmd *cobra.Command, db *sql.DB) error {
	version, err := storage.SchemaVersion(cmd.Context(), db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema Version: %s (latest %s)\n", version, storage.CurrentSchemaVersion)
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docchunk-mcp/internal/config"
	"github.com/dshills/docchunk-mcp/internal/logger"
	"github.com/dshills/docchunk-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// shutdownTimeout bounds how long running split tasks may take to finish
// once the process is asked to stop
const shutdownTimeout = 30 * time.Second

// cli carries state shared by every command
type cli struct {
	v       *viper.Viper
	cfgPath string
	cfg     *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:          "docchunk",
		Short:        "Split documents into bounded segments and serve them over MCP",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgPath, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("db", "", "database path (default ~/.docchunk/docchunk.db)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "log as JSON")

	_ = c.v.BindPFlag("storage.db_path", flags.Lookup("db"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.json", flags.Lookup("log-json"))

	root.AddCommand(newServeCmd(c), newSplitCmd(c), newMigrateCmd(c), newVersionCmd())
	return root
}

// load reads the configuration and initializes the default logger
func (c *cli) load() error {
	cfg, err := config.LoadWith(c.v, c.cfgPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger.Init(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     os.Stderr,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		// version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd)
		},
	}
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "docchunk MCP Server\n")
	fmt.Fprintf(out, "Version: %s\n", version)
	fmt.Fprintf(out, "Build Time: %s\n", buildTime)
	fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
}

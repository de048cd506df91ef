// Package cmd provides the CLI commands for Locate.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/locate/internal/config"
	"github.com/dshills/locate/internal/logging"
	"github.com/dshills/locate/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
}

// NewRootCmd creates the root command for the locate CLI
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Fast file name search backed by a local SQLite index",
		Long: `Locate indexes folders into a local SQLite database and searches file and
folder names with full-text prefix matching, boolean terms, regular
expressions and filters.

Examples:
  locate build-index ~/Documents
  locate search invoice +2024 -draft --type documents
  locate search '^IMG_\d+\.heic$' --regex
  locate serve`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.SetVersionTemplate("locate version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.locate/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Index database path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newBuildIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newRootsCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// load reads the config, applies flag overrides and sets up logging on stderr
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.DatabasePath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	o.cfg = cfg
	return nil
}

// openStore opens the configured index database, creating its directory
func (o *globalOptions) openStore() (*storage.SQLiteStorage, error) {
	if err := o.cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}
	store, err := storage.Open(o.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return store, nil
}

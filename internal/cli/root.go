// Package cli wires configuration, storage and the terminal UI behind the
// tomato command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/tomato/internal/config"
	"github.com/sadopc/tomato/internal/store"
	"github.com/sadopc/tomato/internal/tracker"
)

type rootFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "tomato",
		Short: "tomato - a focus timer for the terminal",
		Long: `tomato runs focus sessions against a deadline, records them with a
description and a category, and keeps the history in a local database.

Run without a subcommand to open the timer.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default ~/.config/tomato/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Database path (overrides the config file)")

	cmd.AddCommand(newHistoryCmd(flags))
	cmd.AddCommand(newCategoriesCmd(flags))
	cmd.AddCommand(newClearCmd(flags))
	cmd.AddCommand(newExportCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	return cmd
}

// Execute runs the root command.
func Execute(version string) error {
	cmd := newRootCmd()
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// env is everything a command needs once configuration is resolved.
type env struct {
	cfg     config.Config
	log     *slog.Logger
	store   *store.Store
	tracker *tracker.Tracker
	logFile io.Closer
}

// loadConfig reads the config file named by --config (or the default one)
// and applies the --db override. It also returns the file path.
func loadConfig(flags *rootFlags) (config.Config, string, error) {
	path := flags.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Config{}, "", err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, err
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	return cfg, path, nil
}

func openEnv(flags *rootFlags) (*env, error) {
	cfg, _, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	// A log file we cannot open is not fatal; the logger discards instead.
	logger, logFile, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("store opened", "path", cfg.DBPath)

	return &env{
		cfg:     cfg,
		log:     logger,
		store:   s,
		tracker: tracker.Open(s, logger),
		logFile: logFile,
	}, nil
}

func (e *env) Close() {
	e.store.Close()
	e.logFile.Close()
}

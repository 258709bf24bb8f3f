// Package main is the pddlsim command line. It loads YAML fixtures, lists the
// legal actions of a problem, runs plans and random walks against the
// simulator, and replays episodes recorded in the SQLite store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pddlsim/internal/config"
	"pddlsim/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	backend    string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pddlsim",
	Short: "pddlsim - a simulator for PDDL planning problems",
	Long: `pddlsim grounds the legal actions of a PDDL problem with a Datalog
backend and steps an episode through them.

Domains and problems are read from YAML fixture files. Episodes started by
walk are recorded in SQLite and can be replayed with their seed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if backend != "" {
			loaded.Solver.Backend = backend
		}
		if dbPath != "" {
			loaded.Store.DatabasePath = dbPath
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		l, err := logging.New(loaded.Logging.Level, loaded.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, logger = loaded, l
		logging.For(logger, logging.CategoryBoot).Debug("config loaded",
			zap.String("path", configPath),
			zap.String("backend", cfg.Solver.Backend))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pddlsim.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Episode database (overrides store.database_path)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Grounding backend: mangle or datalog")

	walkCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Episode seed (default from config)")
	walkCmd.Flags().IntVar(&maxStepsFlag, "max-steps", 0, "Step budget (default from config)")
	walkCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print Prometheus metrics when the walk ends")
	runCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Episode seed (default from config)")
	actionsCmd.Flags().Uint64Var(&seedFlag, "seed", 0, "Episode seed (default from config)")
	episodesCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum episodes to list")

	rootCmd.AddCommand(
		actionsCmd,
		runCmd,
		walkCmd,
		replayCmd,
		episodesCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

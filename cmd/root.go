package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptd/internal/config"
	"github.com/abhisek/adaptd/internal/logger"
	"github.com/abhisek/adaptd/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "adaptd",
	Short:         "Adaptive mastery tracking and item selection engine",
	Long:          "adaptd tracks per-learner mastery over a curriculum tree and picks the topic and difficulty of the next task.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ADAPTD_DB env var)")
	rootCmd.PersistentFlags().String("curriculum", "", "Path to a YAML curriculum (overrides ADAPTD_CURRICULUM)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev or prod (overrides ADAPTD_LOG_MODE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(weakCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("curriculum"); v != "" {
		cfg.CurriculumPath = v
	}
	if v, _ := cmd.Flags().GetString("log-mode"); v != "" {
		cfg.LogMode = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then ADAPTD_DB env var, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func openStore(cfg config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	return log.With("service", "adaptd"), nil
}

package cli

import (
	"log/slog"
	"os"

	"github.com/lazypower/warmth/internal/config"
	"github.com/lazypower/warmth/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagEnvFile   string
	flagDBDriver  string
	flagDBPath    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "warmth",
	Short: "Relationship warmth that decays between interactions",
	Long: "Warmth tracks how warm each relationship is. Scores decay continuously " +
		"from their last anchor and are re-anchored by interactions and mode switches.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagEnvFile, "env-file", "", "Load environment from this file (default .env)")
	pf.StringVar(&flagDBDriver, "db-driver", "", "Database driver: sqlite, postgres, mysql")
	pf.StringVar(&flagDBPath, "db", "", "SQLite database path (default ~/.warmth/warmth.db)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console, json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(importCmd)
}

// loadConfig reads the environment, applies command-line overrides and
// installs the configured default logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if flagDBDriver != "" {
		cfg.Database.Driver = flagDBDriver
	}
	if flagDBPath != "" {
		cfg.Database.Path = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return config.Config{}, err
	}
	logging.SetDefault(logging.New(os.Stderr, level, format, level <= slog.LevelDebug))
	return cfg, nil
}

// Package cli implements the etl command tree.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Bruno-te/Code-Crafters/internal/config"
	"github.com/Bruno-te/Code-Crafters/internal/logger"
)

// Set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	logFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "SMS transaction ETL pipeline",
	Long: `etl extracts mobile-money transactions from SMS XML exports,
normalizes and classifies them, and loads them into a SQLite database
with audit logging, recomputed analytics and JSON snapshot export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "rule configuration file (TOML); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the shared --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger, honoring --verbose and
// --log-file. The returned closer releases the log file, if any.
func newLogger() (zerolog.Logger, func(), error) {
	var log zerolog.Logger
	closeLog := func() {}

	if logFile != "" {
		fileLog, closer, err := logger.NewWithFile(logFile)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		log = fileLog
		closeLog = func() { closer.Close() }
	} else {
		log = logger.New()
	}

	if verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	return log, closeLog, nil
}

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/ooler/pkg/config"
)

// configureLogger creates a logger with the level chosen by --log-level,
// then --verbose, then the config file. Without any of them the CLI stays
// quiet and only prints command output.
func configureLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	logger := cfg.NewLogger()

	switch {
	case cmd.Flags().Changed("log-level"):
		level, err := logrus.ParseLevel(logLevelFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelFlag)
		}
		logger.SetLevel(level)
	case verboseFlag:
		logger.SetLevel(logrus.DebugLevel)
	case configPath != "":
		// cfg.NewLogger already applied the file's level.
	default:
		logger.SetLevel(logrus.PanicLevel)
	}

	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}

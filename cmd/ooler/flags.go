package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/ooler/pkg/config"
)

// Global flag values. Zero values mean "not given" and leave the config
// file (or its defaults) in charge.
var (
	configPath     string
	logLevelFlag   string
	verboseFlag    bool
	backendFlag    string
	profileFlag    string
	profileFile    string
	idleTimeout    time.Duration
	connectTimeout time.Duration
	outputFormat   string
)

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVar(&verboseFlag, "verbose", false, "Verbose output (same as --log-level debug)")
	f.StringVar(&backendFlag, "backend", "", "BLE backend: goble or tinygo (default goble)")
	f.StringVar(&profileFlag, "profile", "", "Built-in protocol profile (default v1)")
	f.StringVar(&profileFile, "profile-file", "", "YAML protocol profile; overrides --profile")
	f.DurationVar(&idleTimeout, "idle-timeout", 0, "Disconnect after this much inactivity; 0 uses the profile default, negative never")
	f.DurationVar(&connectTimeout, "connect-timeout", 0, "Connection timeout (default 30s)")
	f.StringVar(&outputFormat, "format", "", "Output format: table or json (default table)")
}

// loadConfig reads --config and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("backend") {
		cfg.Backend = backendFlag
	}
	if flags.Changed("profile") {
		cfg.Profile = profileFlag
	}
	if flags.Changed("profile-file") {
		cfg.ProfileFile = profileFile
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = idleTimeout
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = connectTimeout
	}
	if flags.Changed("format") {
		cfg.OutputFormat = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPaths     []string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

// layerFlag collects repeated -config flags in order.
type layerFlag struct {
	paths *[]string
	set   bool
}

func (f *layerFlag) String() string {
	if f.paths == nil {
		return ""
	}
	return strings.Join(*f.paths, ",")
}

func (f *layerFlag) Set(value string) error {
	// The first explicit flag replaces the environment default.
	if !f.set {
		*f.paths = nil
		f.set = true
	}
	*f.paths = append(*f.paths, value)
	return nil
}

func parseFlags() *CLIConfig {
	return parseFlagSet(flag.CommandLine, os.Args[1:])
}

func parseFlagSet(fs *flag.FlagSet, args []string) *CLIConfig {
	cfg := &CLIConfig{}

	if env := getEnv("ATLASBRIDGE_CONFIG", ""); env != "" {
		cfg.ConfigPaths = strings.Split(env, ",")
	}
	layers := &layerFlag{paths: &cfg.ConfigPaths}
	fs.Var(layers, "config",
		"Configuration file, repeat to layer files (env: ATLASBRIDGE_CONFIG, comma-separated)")
	fs.Var(layers, "c", "Shorthand for -config")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("ATLASBRIDGE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: ATLASBRIDGE_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("ATLASBRIDGE_LOG_FORMAT", "json"),
		"Log format: json, text (env: ATLASBRIDGE_LOG_FORMAT)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("ATLASBRIDGE_DEBUG", false),
		"Enable debug logging (env: ATLASBRIDGE_DEBUG)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("ATLASBRIDGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: ATLASBRIDGE_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = printDetailedHelp
	// flag.CommandLine exits on a parse error.
	_ = fs.Parse(args)

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	for _, path := range cfg.ConfigPaths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file not found: %s", path)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Atlas to OMRS metadata bridge

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Without -config the bridge runs on defaults and ATLASBRIDGE_* overrides.

Examples:
  # Run with a base file and an environment layer
  %s -config=/etc/atlasbridge/base.yaml -config=/etc/atlasbridge/prod.yaml

  # Run with debug logging
  %s -config=bridge.yaml -log-level=debug -log-format=text

  # Run from environment variables only
  export ATLASBRIDGE_METADATA_COLLECTION_ID=3f1c9b1e-0000-4000-8000-000000000001
  export ATLASBRIDGE_SERVER_NAME=atlas-bridge
  export ATLASBRIDGE_NATS_URLS=nats://nats:4222
  %s

  # Validate configuration only
  %s -config=bridge.yaml -validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

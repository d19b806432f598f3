// Package main runs the Atlas to OMRS metadata bridge: it consumes Atlas
// entity notifications and republishes them as OMRS instance events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/planetf1/atlas-sub002/config"
)

// Build information, overridden with -ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "atlasbridge"

func main() {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Bridge failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	switch {
	case cli.ShowVersion:
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	case cli.ShowHelp:
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)
	logger.Info("Starting Atlas bridge", "build_time", BuildTime, "config_paths", cli.ConfigPaths)

	cfg, err := loadConfig(cli.ConfigPaths)
	if err != nil {
		return err
	}
	logger.Debug("Effective configuration", "config", cfg.String())
	if cli.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBridge(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return b.run(ctx, cli.ShutdownTimeout)
}

// loadConfig layers paths in order over the defaults, applies environment
// overrides and validates the result.
func loadConfig(paths []string) (*config.Config, error) {
	loader := config.NewLoader()
	for _, path := range paths {
		loader.AddLayer(path)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

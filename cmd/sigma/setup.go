package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/sigma/internal/app"
	"github.com/newthinker/sigma/internal/config"
	"github.com/newthinker/sigma/internal/logger"
	"go.uber.org/zap"
)

// loadConfig reads the config file, or falls back to defaults.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger honours --debug over the configured log settings.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if debug {
		return logger.New(true, "debug")
	}
	if cfg == nil {
		return logger.New(false, "warn")
	}
	return logger.New(cfg.Log.Development, cfg.Log.Level)
}

// withApp handles common setup: config, logger, app and a context that is
// cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App, log *zap.Logger) error) error {
	bootstrap, err := newLogger(nil)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(bootstrap)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a, log)
}

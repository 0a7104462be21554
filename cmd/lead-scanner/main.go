package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/app"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
)

const (
	modeServe = "serve"
	modeScan  = "scan"
)

func main() {
	mode := flag.String("mode", modeServe, "run mode: serve (HTTP API) or scan (single scan and exit)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	switch *mode {
	case modeServe:
		err = application.RunServe(ctx)
	case modeScan:
		err = application.RunScan(ctx)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("exited with error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

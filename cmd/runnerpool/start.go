package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/runnerpool/internal/config"
	"github.com/mattjoyce/runnerpool/internal/doctor"
	"github.com/mattjoyce/runnerpool/internal/journal"
	"github.com/mattjoyce/runnerpool/internal/lock"
	"github.com/mattjoyce/runnerpool/internal/log"
	"github.com/mattjoyce/runnerpool/internal/webhook"
)

type startOptions struct {
	config      string
	logLevel    string
	logFormat   string
	journal     string
	pidFile     string
	maxBodySize string
}

func parseStartFlags(args []string) (startOptions, error) {
	var opts startOptions
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.StringVar(&opts.config, "config", envOr(envConfig, config.DefaultLocator), "Configuration locator (classpath:, file:, or bare path)")
	fs.StringVar(&opts.logLevel, "log-level", envOr(envLogLevel, "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "json", "Log format (json or text)")
	fs.StringVar(&opts.journal, "journal", envOr(envJournal, ""), "Record deliveries in this SQLite file")
	fs.StringVar(&opts.pidFile, "pid-file", "", "Hold an exclusive lock on this PID file while running")
	fs.StringVar(&opts.maxBodySize, "max-body-size", "1MB", "Maximum webhook body size (e.g. 512KB, 1MB)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func runStart(args []string) int {
	opts, err := parseStartFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	maxBody, err := webhook.ParseSize(opts.maxBodySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --max-body-size: %v\n", err)
		return 1
	}

	log.Setup(opts.logLevel, opts.logFormat)
	logger := log.WithComponent("main")
	logger.Info("runnerpool starting", "version", currentVersionInfo().Version, "config", opts.config)

	snap, err := config.NewLoader().LoadSnapshot(opts.config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	cfg := snap.Config

	secret := os.Getenv(webhook.SecretEnv)
	for _, w := range doctor.New(cfg, secret).Validate().Warnings {
		logger.Warn("config advisory", "category", w.Category, "field", w.Field, "message", w.Message)
	}

	if opts.pidFile != "" {
		pidLock, err := lock.Acquire(opts.pidFile)
		if err != nil {
			logger.Error("failed to acquire PID lock", "path", opts.pidFile, "error", err)
			return 1
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", pidLock.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var handler webhook.EventHandler = webhook.NopHandler
	if opts.journal != "" {
		j, err := journal.Open(ctx, opts.journal)
		if err != nil {
			logger.Error("failed to open journal", "path", opts.journal, "error", err)
			return 1
		}
		defer j.Close()
		handler = j
		logger.Info("delivery journal opened", "path", opts.journal)
	}

	srv := webhook.New(webhook.Config{
		Listen:      cfg.Server.Listen(),
		Secret:      secret,
		MaxBodySize: maxBody,
	}, handler, log.WithComponent("webhook"))

	logger.Info("runnerpool running (press Ctrl+C to stop)",
		"app_name", cfg.AppName,
		"labels", cfg.Labels(),
		"config_digest", snap.Digest,
	)

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("webhook server failed", "error", err)
		return 1
	}
	logger.Info("runnerpool stopped")
	return 0
}

func printStartHelp() {
	fmt.Print(`Usage: runnerpool start [flags]

Flags:
  --config LOCATOR       Configuration locator (default classpath:config.yml, env RUNNERPOOL_CONFIG)
  --log-level LEVEL      debug, info, warn, error (env RUNNERPOOL_LOG_LEVEL)
  --log-format FORMAT    json or text
  --journal PATH         Record deliveries in a SQLite journal (env RUNNERPOOL_JOURNAL)
  --pid-file PATH        Refuse to start if another instance holds this file
  --max-body-size SIZE   Maximum webhook body size (default 1MB)

The webhook secret is read from GITHUB_WEBHOOK_SECRET. When it is empty,
signatures are not verified and every delivery logs a warning.
`)
}

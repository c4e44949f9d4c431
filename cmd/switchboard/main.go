// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/switchboard/lib/config"
	"github.com/bureau-foundation/switchboard/lib/process"
	"github.com/bureau-foundation/switchboard/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		listen      string
		htdocs      string
		debug       bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("switchboard", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address (overrides http.listen)")
	flagSet.StringVar(&htdocs, "htdocs", "", "static file directory (overrides http.htdocs)")
	flagSet.BoolVar(&debug, "debug", false, "log every request and enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("switchboard")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("listen") {
		cfg.HTTP.Listen = listen
	}
	if flagSet.Changed("htdocs") {
		cfg.HTTP.Htdocs = htdocs
	}
	if flagSet.Changed("debug") {
		cfg.Debug = debug
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)
	logger.Info("starting switchboard",
		"version", version.Info(),
		"environment", cfg.Environment,
		"listen", cfg.HTTP.Listen,
		"channel", cfg.Gateway.Prefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.HTTP.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.HTTP.Listen, err)
	}
	return server.serve(ctx, listener)
}

// loadConfig reads the --config file, then SWITCHBOARD_CONFIG, and
// falls back to built-in defaults when neither is given.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

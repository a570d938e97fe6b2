// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/benchfleet/benchfleet/lib/clock"
	"github.com/benchfleet/benchfleet/lib/config"
	"github.com/benchfleet/benchfleet/lib/process"
	"github.com/benchfleet/benchfleet/lib/service"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		secret      string
		secretStdin bool
		resultsRoot string
	)
	pflag.StringVar(&configPath, "config", "", "collector config file (YAML; default $"+config.EnvVar+")")
	pflag.StringVar(&listen, "listen", "", "TCP listen address (overrides config)")
	pflag.StringVar(&secret, "secret", "", "shared secret (overrides config)")
	pflag.BoolVar(&secretStdin, "secret-stdin", false, "read the shared secret from the first line of stdin")
	pflag.StringVar(&resultsRoot, "results-root", "", "result bundle storage directory (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if secret != "" {
		cfg.Secret = secret
	}
	if resultsRoot != "" {
		cfg.ResultsRoot = resultsRoot
	}
	if secretStdin {
		// Reading from stdin keeps the secret out of the process
		// table and shell history.
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading secret from stdin: %w", err)
		}
		cfg.Secret = strings.TrimRight(line, "\r\n")
	}

	logger := service.NewLogger()
	if cfg.Secret == "" {
		logger.Warn("no shared secret configured, using the built-in default; " +
			"set one before exposing this collector beyond a trusted network")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	progress := NewProgressStore(logger)
	if cfg.LogProgress {
		progress.SetListener(logListener{logger: logger})
	}

	handler := NewHandler(HandlerConfig{
		Auth:     NewAuthGate(cfg.Secret),
		Progress: progress,
		Store:    NewArtifactStore(cfg.ResultsRoot, clk, logger),
		Notifier: NewLogNotifier(logger),
		Clock:    clk,
		Logger:   logger,
	})

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Listen,
		Handler:         handler.Routes(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})
	return server.Serve(ctx)
}

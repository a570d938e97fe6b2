// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/benchfleet/benchfleet/lib/archive"
	"github.com/benchfleet/benchfleet/lib/process"
	"github.com/benchfleet/benchfleet/lib/report"
	"github.com/benchfleet/benchfleet/lib/service"
)

func main() {
	var (
		retries       = flag.Int("retries", report.DefaultMaxRetries, "re-attempts after a failed report delivery")
		restore       = flag.Bool("restore", true, "restore project dependencies before each run")
		dotnetPath    = flag.String("dotnet", "dotnet", "path to the dotnet binary")
		artifactsDir  = flag.String("artifacts-dir", "BenchmarkDotNet.Artifacts", "artifact directory name relative to each project directory")
		archiveFormat = flag.String("archive-format", string(archive.Zip), `result bundle format: "zip" or "tzst"`)
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: benchfleet-runner [flags] <projectPaths> <targetFrameworks> <instanceName> <serverAddress> <sharedSecret>\n\n")
		fmt.Fprintf(os.Stderr, "projectPaths and targetFrameworks are semicolon-separated lists paired positionally.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 5 {
		flag.Usage()
		os.Exit(2)
	}
	projectPaths := flag.Arg(0)
	frameworks := flag.Arg(1)
	instance := flag.Arg(2)
	serverAddress := flag.Arg(3)
	secret := flag.Arg(4)

	logger := service.NewLogger()

	format, err := archive.ParseFormat(*archiveFormat)
	if err != nil {
		process.Fatal(err)
	}
	specs, err := ParseRunSpecs(projectPaths, frameworks)
	if err != nil {
		process.Fatal(err)
	}
	if instance == "" {
		process.Fatal(fmt.Errorf("instance name must not be empty"))
	}
	if *retries < 0 {
		process.Fatal(fmt.Errorf("--retries must not be negative, got %d", *retries))
	}

	reporter := report.New(report.Config{
		ServerURL:  serverAddress,
		Secret:     secret,
		MaxRetries: *retries,
		Logger:     logger,
	})
	sequencer := NewSequencer(SequencerConfig{
		Instance:      instance,
		Specs:         specs,
		DotnetPath:    *dotnetPath,
		ArtifactsDir:  *artifactsDir,
		ArchiveFormat: format,
		Restore:       *restore,
		Sink:          reporter,
		Logger:        logger,
	})

	// Runs execute to completion once started; there is no external
	// cancellation surface, so the root context is unadorned.
	if err := sequencer.Run(context.Background()); err != nil {
		process.Fatal(err)
	}
	logger.Info("all benchmark runs finished", "runs", len(specs))
}

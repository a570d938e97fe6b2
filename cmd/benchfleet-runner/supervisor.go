// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/benchfleet/benchfleet/lib/archive"
	"github.com/benchfleet/benchfleet/lib/bench"
	"github.com/benchfleet/benchfleet/lib/report"
)

// runState names the supervision phases of a single run, for logs.
type runState string

const (
	stateNotStarted runState = "not_started"
	stateRestoring  runState = "restoring"
	stateRunning    runState = "running"
	stateCompleted  runState = "completed"
)

// statusSink is the reporting surface the supervisor drives. The
// production implementation is *report.Reporter; tests substitute a
// recorder. Implementations must be safe for concurrent use: the
// stdout and stderr drains call Status from separate goroutines.
type statusSink interface {
	Status(ctx context.Context, status report.Status) error
	Upload(ctx context.Context, identity bench.RunIdentity, archivePath string) error
}

// Supervisor runs one benchmark project under one target framework:
// restore, execute with streamed output classification and reporting,
// then package and upload the artifacts.
type Supervisor struct {
	identity      bench.RunIdentity
	projectPath   string
	framework     string
	dotnetPath    string
	artifactsDir  string
	archiveFormat archive.Format
	restore       bool
	sink          statusSink
	logger        *slog.Logger

	state runState
}

// SupervisorConfig configures one run.
type SupervisorConfig struct {
	Identity    bench.RunIdentity
	ProjectPath string
	Framework   string

	// DotnetPath is the benchmark toolchain binary. Defaults to
	// "dotnet".
	DotnetPath string

	// ArtifactsDir is the artifact directory name relative to the
	// project directory. Defaults to "BenchmarkDotNet.Artifacts".
	ArtifactsDir string

	// ArchiveFormat selects the result bundle format. Defaults to
	// archive.Zip.
	ArchiveFormat archive.Format

	// Restore runs a dependency restore before the benchmark.
	Restore bool

	// Sink receives status reports and the result upload. Required.
	Sink statusSink

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// NewSupervisor creates a supervisor for one run. Panics on missing
// required dependencies.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	if config.Sink == nil {
		panic("Supervisor: Sink is required")
	}
	if config.Logger == nil {
		panic("Supervisor: Logger is required")
	}
	dotnetPath := config.DotnetPath
	if dotnetPath == "" {
		dotnetPath = "dotnet"
	}
	artifactsDir := config.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = "BenchmarkDotNet.Artifacts"
	}
	format := config.ArchiveFormat
	if format == "" {
		format = archive.Zip
	}
	return &Supervisor{
		identity:      config.Identity,
		projectPath:   config.ProjectPath,
		framework:     config.Framework,
		dotnetPath:    dotnetPath,
		artifactsDir:  artifactsDir,
		archiveFormat: format,
		restore:       config.Restore,
		sink:          config.Sink,
		logger: config.Logger.With(
			"instance", config.Identity.Instance,
			"project", config.Identity.Project,
		),
		state: stateNotStarted,
	}
}

// Run executes the full lifecycle of one benchmark run. Process
// failures are reported to the collector, never returned: only the
// runner's own configuration aborts a sequence, and that is checked
// before any supervisor exists. The returned error is reserved for
// context cancellation.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.restore {
		s.setState(stateRestoring)
		s.runRestore(ctx)
	}

	s.setState(stateRunning)
	s.runBenchmark(ctx)

	s.setState(stateCompleted)
	s.packageAndUpload(ctx)
	return ctx.Err()
}

func (s *Supervisor) setState(state runState) {
	s.state = state
	s.logger.Info("run state", "state", string(state))
}

// runRestore restores project dependencies. Fire and forget: the exit
// code is logged, never inspected — the benchmark run itself will
// surface any real problem.
func (s *Supervisor) runRestore(ctx context.Context) {
	command := exec.CommandContext(ctx, s.dotnetPath, "restore", s.projectPath)
	output, err := command.CombinedOutput()
	if err != nil {
		s.logger.Warn("restore finished with error", "error", err, "output", string(output))
		return
	}
	s.logger.Info("restore finished")
}

// runBenchmark launches the benchmark process and drains its output
// streams concurrently, reporting each classified event as it
// arrives. Per-stream line order is preserved by the per-stream
// goroutines; ordering between the two streams is not guaranteed.
func (s *Supervisor) runBenchmark(ctx context.Context) {
	command := exec.CommandContext(ctx, s.dotnetPath,
		"run", "-c", "Release",
		"--framework", s.framework,
		"--project", s.projectPath,
	)
	stdout, err := command.StdoutPipe()
	if err != nil {
		s.reportFailure(ctx, fmt.Sprintf("starting benchmark process: %v", err))
		return
	}
	stderr, err := command.StderrPipe()
	if err != nil {
		s.reportFailure(ctx, fmt.Sprintf("starting benchmark process: %v", err))
		return
	}
	if err := command.Start(); err != nil {
		s.reportFailure(ctx, fmt.Sprintf("starting benchmark process: %v", err))
		return
	}

	var drains sync.WaitGroup
	drains.Add(2)
	go func() {
		defer drains.Done()
		s.drainStdout(ctx, stdout)
	}()
	go func() {
		defer drains.Done()
		s.drainStderr(ctx, stderr)
	}()
	drains.Wait()

	// Exit code is not inspected: a crashed harness already reported
	// itself through stderr, and packaging runs either way.
	if err := command.Wait(); err != nil {
		s.logger.Warn("benchmark process exited with error", "error", err)
	} else {
		s.logger.Info("benchmark process exited")
	}
}

// drainStdout classifies harness stdout and reports discovery and
// progress events. The total announced by the discovery event is
// fixed for the remainder of the run.
func (s *Supervisor) drainStdout(ctx context.Context, stream io.Reader) {
	scanner := newLineScanner(stream)
	var total uint64
	var totalKnown bool
	for scanner.Scan() {
		line := scanner.Text()
		event := bench.ClassifyStdout(line)
		switch event.Kind {
		case bench.RunStarted:
			if !totalKnown {
				total = event.Total
				totalKnown = true
			}
			s.sendStatus(ctx, report.Status{
				Identity:  s.identity,
				Message:   line,
				Remaining: total,
				Total:     total,
			})
		case bench.Progress:
			if !totalKnown {
				// No discovery line yet: without a total the
				// report cannot satisfy remaining <= total, so
				// the line is dropped.
				s.logger.Warn("progress before discovery, dropping", "line", line)
				continue
			}
			if event.Remaining > total {
				// The collector rejects remaining > total, so a
				// line contradicting the announced total is
				// dropped here instead of burning a report.
				s.logger.Warn("progress exceeds announced total, dropping",
					"line", line,
					"total", total,
				)
				continue
			}
			s.sendStatus(ctx, report.Status{
				Identity:        s.identity,
				Message:         line,
				Remaining:       event.Remaining,
				Total:           total,
				EstimatedFinish: event.EstimatedFinish,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("reading benchmark stdout", "error", err)
	}
}

// drainStderr reports every stderr line as a failure, then the empty
// terminal line after the stream closes. Consumers treat that final
// empty failure as the end-of-stream signal, so it is sent even when
// nothing was written to stderr.
func (s *Supervisor) drainStderr(ctx context.Context, stream io.Reader) {
	scanner := newLineScanner(stream)
	for scanner.Scan() {
		s.reportFailure(ctx, bench.ClassifyStderr(scanner.Text()).Message)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("reading benchmark stderr", "error", err)
	}
	s.reportFailure(ctx, "")
}

// packageAndUpload archives the artifact directory, uploads it, and
// deletes the local bundle. Failures are reported, not fatal: the
// next project still runs.
func (s *Supervisor) packageAndUpload(ctx context.Context) {
	artifactsPath := filepath.Join(filepath.Dir(s.projectPath), s.artifactsDir)
	bundlePath := filepath.Join(filepath.Dir(s.projectPath), "BenchmarkResults"+s.archiveFormat.Extension())

	if err := archive.Pack(s.archiveFormat, artifactsPath, bundlePath); err != nil {
		s.reportFailure(ctx, fmt.Sprintf("packaging results failed: %v", err))
		return
	}
	defer func() {
		if err := os.Remove(bundlePath); err != nil {
			s.logger.Warn("removing local bundle", "error", err)
		}
	}()

	if err := s.sink.Upload(ctx, s.identity, bundlePath); err != nil {
		s.logger.Error("result upload failed", "error", err)
		return
	}
	s.logger.Info("result bundle uploaded", "bundle", bundlePath)
}

func (s *Supervisor) sendStatus(ctx context.Context, status report.Status) {
	if err := s.sink.Status(ctx, status); err != nil {
		s.logger.Warn("status report not delivered", "error", err)
	}
}

func (s *Supervisor) reportFailure(ctx context.Context, message string) {
	s.sendStatus(ctx, report.Status{
		Identity: s.identity,
		Message:  message,
		IsError:  true,
	})
}

// newLineScanner builds the line scanner used for both output
// streams. Harness lines are normally short, but exception dumps can
// be large; 1 MB covers them.
func newLineScanner(stream io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

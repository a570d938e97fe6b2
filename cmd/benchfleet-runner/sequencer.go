// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/benchfleet/benchfleet/lib/archive"
	"github.com/benchfleet/benchfleet/lib/bench"
)

// projectFilePattern accepts MSBuild project files: any ".*proj"
// extension (csproj, fsproj, vbproj).
var projectFilePattern = regexp.MustCompile(`\.\w*proj$`)

// RunSpec pairs one benchmark project with the framework to run it
// under.
type RunSpec struct {
	ProjectPath string
	Framework   string
}

// ParseRunSpecs validates the semicolon-separated project path and
// framework lists and pairs them positionally. Every violation is
// fatal before any process spawns: a half-validated sequence would
// fail mid-run after hours of benchmarking.
func ParseRunSpecs(projectPaths, frameworks string) ([]RunSpec, error) {
	paths := splitList(projectPaths)
	targets := splitList(frameworks)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no benchmark projects given")
	}
	if len(paths) != len(targets) {
		return nil, fmt.Errorf("got %d projects but %d target frameworks; the lists pair positionally", len(paths), len(targets))
	}
	specs := make([]RunSpec, 0, len(paths))
	for i, path := range paths {
		if !projectFilePattern.MatchString(path) {
			return nil, fmt.Errorf("%q is not a project file", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("project file %q: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("project file %q is a directory", path)
		}
		specs = append(specs, RunSpec{ProjectPath: path, Framework: targets[i]})
	}
	return specs, nil
}

// ProjectName derives the run's reported project name from its
// project file path: the base name without the extension.
func (s RunSpec) ProjectName() string {
	base := filepath.Base(s.ProjectPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ";") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Sequencer runs a validated list of benchmark runs strictly one at a
// time. Benchmarks contend for the whole machine; overlap would
// corrupt both runs' measurements.
type Sequencer struct {
	instance string
	specs    []RunSpec

	dotnetPath    string
	artifactsDir  string
	archiveFormat archive.Format
	restore       bool
	sink          statusSink
	logger        *slog.Logger
}

// SequencerConfig configures a Sequencer.
type SequencerConfig struct {
	// Instance is the worker instance name stamped on every report.
	Instance string

	// Specs is the validated run list, executed in order.
	Specs []RunSpec

	// DotnetPath, ArtifactsDir, ArchiveFormat, and Restore are passed
	// through to each run's supervisor.
	DotnetPath    string
	ArtifactsDir  string
	ArchiveFormat archive.Format
	Restore       bool

	// Sink receives all reports. Required.
	Sink statusSink

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// NewSequencer creates a Sequencer. Panics on missing required
// dependencies.
func NewSequencer(config SequencerConfig) *Sequencer {
	if config.Sink == nil {
		panic("Sequencer: Sink is required")
	}
	if config.Logger == nil {
		panic("Sequencer: Logger is required")
	}
	return &Sequencer{
		instance:      config.Instance,
		specs:         config.Specs,
		dotnetPath:    config.DotnetPath,
		artifactsDir:  config.ArtifactsDir,
		archiveFormat: config.ArchiveFormat,
		restore:       config.Restore,
		sink:          config.Sink,
		logger:        config.Logger,
	}
}

// Run executes every configured run in order. A failed run is
// reported by its supervisor and the sequence continues; only context
// cancellation stops the sequence early.
func (q *Sequencer) Run(ctx context.Context) error {
	for i, spec := range q.specs {
		q.logger.Info("starting benchmark run",
			"index", i+1,
			"of", len(q.specs),
			"project", spec.ProjectName(),
			"framework", spec.Framework,
		)
		supervisor := NewSupervisor(SupervisorConfig{
			Identity: bench.RunIdentity{
				Instance: q.instance,
				Project:  spec.ProjectName(),
			},
			ProjectPath:   spec.ProjectPath,
			Framework:     spec.Framework,
			DotnetPath:    q.dotnetPath,
			ArtifactsDir:  q.artifactsDir,
			ArchiveFormat: q.archiveFormat,
			Restore:       q.restore,
			Sink:          q.sink,
			Logger:        q.logger,
		})
		if err := supervisor.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

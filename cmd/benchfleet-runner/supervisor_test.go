// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/benchfleet/benchfleet/lib/archive"
	"github.com/benchfleet/benchfleet/lib/bench"
	"github.com/benchfleet/benchfleet/lib/report"
)

// fakeSink records every report. Safe for concurrent use: the stdout
// and stderr drains report from separate goroutines.
type fakeSink struct {
	mu       sync.Mutex
	statuses []report.Status
	uploads  []string
}

func (f *fakeSink) Status(_ context.Context, status report.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeSink) Upload(_ context.Context, _ bench.RunIdentity, archivePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, archivePath)
	return nil
}

func (f *fakeSink) recorded() ([]report.Status, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]report.Status(nil), f.statuses...), append([]string(nil), f.uploads...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSupervisor(t *testing.T, sink *fakeSink, projectPath string) *Supervisor {
	t.Helper()
	return NewSupervisor(SupervisorConfig{
		Identity:    bench.RunIdentity{Instance: "worker-1", Project: "Md5VsSha256"},
		ProjectPath: projectPath,
		Framework:   "net8.0",
		DotnetPath:  "true",
		Sink:        sink,
		Logger:      discardLogger(),
	})
}

func TestDrainStdoutReportsDiscoveryAndProgress(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	output := strings.Join([]string{
		"// Validating benchmarks:",
		"// ***** Found 42 benchmark(s) in total *****",
		"WorkloadResult   1: 16 op, 330291300.00 ns",
		"// ** Remained 40 (95.2%) benchmark(s) to run. Estimated finish 2026-09-01 18:45 (2h 13m from now) **",
		"// ** Remained 39 benchmark(s) to run **",
		"",
	}, "\n")
	supervisor.drainStdout(context.Background(), strings.NewReader(output))

	statuses, _ := sink.recorded()
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3: %+v", len(statuses), statuses)
	}
	discovery := statuses[0]
	if discovery.Remaining != 42 || discovery.Total != 42 || discovery.IsError {
		t.Errorf("discovery status = %+v, want remaining=total=42", discovery)
	}
	if discovery.Message != "// ***** Found 42 benchmark(s) in total *****" {
		t.Errorf("discovery message = %q, want the verbatim line", discovery.Message)
	}
	withEstimate := statuses[1]
	if withEstimate.Remaining != 40 || withEstimate.Total != 42 {
		t.Errorf("progress status = %+v, want remaining 40 of 42", withEstimate)
	}
	if withEstimate.EstimatedFinish != "2026-09-01 18:45" {
		t.Errorf("estimated finish = %q, want %q", withEstimate.EstimatedFinish, "2026-09-01 18:45")
	}
	withoutEstimate := statuses[2]
	if withoutEstimate.Remaining != 39 || withoutEstimate.EstimatedFinish != "" {
		t.Errorf("estimate-free progress = %+v, want remaining 39 with no estimate", withoutEstimate)
	}
}

func TestDrainStdoutDropsProgressBeforeDiscovery(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	output := strings.Join([]string{
		"// ** Remained 40 benchmark(s) to run **",
		"// ***** Found 42 benchmark(s) in total *****",
		"// ** Remained 41 benchmark(s) to run **",
	}, "\n")
	supervisor.drainStdout(context.Background(), strings.NewReader(output))

	statuses, _ := sink.recorded()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2 (pre-discovery progress dropped): %+v", len(statuses), statuses)
	}
	if statuses[0].Total != 42 || statuses[1].Remaining != 41 {
		t.Errorf("statuses = %+v, want discovery then remaining 41", statuses)
	}
}

func TestDrainStdoutDropsProgressAboveTotal(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	output := strings.Join([]string{
		"// ***** Found 42 benchmark(s) in total *****",
		"// ** Remained 50 benchmark(s) to run **",
		"// ** Remained 41 benchmark(s) to run **",
	}, "\n")
	supervisor.drainStdout(context.Background(), strings.NewReader(output))

	statuses, _ := sink.recorded()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2 (remaining above total dropped): %+v", len(statuses), statuses)
	}
	for i, status := range statuses {
		if status.Remaining > status.Total {
			t.Errorf("status %d = %+v violates remaining <= total", i, status)
		}
	}
	if statuses[1].Remaining != 41 {
		t.Errorf("statuses[1].Remaining = %d, want the valid line 41", statuses[1].Remaining)
	}
}

func TestDrainStdoutFirstDiscoveryFixesTotal(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	output := strings.Join([]string{
		"// ***** Found 42 benchmark(s) in total *****",
		"// ***** Found 99 benchmark(s) in total *****",
		"// ** Remained 10 benchmark(s) to run **",
	}, "\n")
	supervisor.drainStdout(context.Background(), strings.NewReader(output))

	statuses, _ := sink.recorded()
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3: %+v", len(statuses), statuses)
	}
	for i, status := range statuses {
		if status.Total != 42 {
			t.Errorf("status %d total = %d, want the first announced total 42", i, status.Total)
		}
	}
}

func TestDrainStderrReportsEveryLineAndTerminalSignal(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	supervisor.drainStderr(context.Background(), strings.NewReader("boom\nstack frame 1\n"))

	statuses, _ := sink.recorded()
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 2 lines plus the terminal signal: %+v", len(statuses), statuses)
	}
	for i, status := range statuses {
		if !status.IsError {
			t.Errorf("status %d is not an error report: %+v", i, status)
		}
	}
	if statuses[0].Message != "boom" || statuses[1].Message != "stack frame 1" {
		t.Errorf("messages = %q, %q, want the verbatim stderr lines", statuses[0].Message, statuses[1].Message)
	}
	if statuses[2].Message != "" {
		t.Errorf("terminal signal message = %q, want empty", statuses[2].Message)
	}
}

func TestDrainStderrEmptyStreamStillSendsTerminalSignal(t *testing.T) {
	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, "bench.csproj")

	supervisor.drainStderr(context.Background(), strings.NewReader(""))

	statuses, _ := sink.recorded()
	if len(statuses) != 1 || !statuses[0].IsError || statuses[0].Message != "" {
		t.Fatalf("got %+v, want exactly the empty terminal failure", statuses)
	}
}

func TestRunPackagesAndUploadsResults(t *testing.T) {
	projectDir := t.TempDir()
	projectPath := filepath.Join(projectDir, "Md5VsSha256.csproj")
	if err := os.WriteFile(projectPath, []byte("<Project/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	artifactsDir := filepath.Join(projectDir, "BenchmarkDotNet.Artifacts")
	if err := os.MkdirAll(filepath.Join(artifactsDir, "results"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(artifactsDir, "results", "report.html"), []byte("<html/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, projectPath)
	if err := supervisor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	statuses, uploads := sink.recorded()
	if len(uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(uploads))
	}
	wantBundle := filepath.Join(projectDir, "BenchmarkResults"+archive.Zip.Extension())
	if uploads[0] != wantBundle {
		t.Errorf("uploaded %q, want %q", uploads[0], wantBundle)
	}
	if _, err := os.Stat(wantBundle); !os.IsNotExist(err) {
		t.Errorf("local bundle not removed after upload: stat err = %v", err)
	}
	// The stub process writes nothing, so the only status is the
	// stderr terminal signal.
	if len(statuses) != 1 || statuses[0].Message != "" || !statuses[0].IsError {
		t.Errorf("statuses = %+v, want only the terminal signal", statuses)
	}
}

func TestRunReportsPackagingFailure(t *testing.T) {
	projectDir := t.TempDir()
	projectPath := filepath.Join(projectDir, "Md5VsSha256.csproj")
	if err := os.WriteFile(projectPath, []byte("<Project/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	// No artifacts directory: packaging must fail and be reported.

	sink := &fakeSink{}
	supervisor := testSupervisor(t, sink, projectPath)
	if err := supervisor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	statuses, uploads := sink.recorded()
	if len(uploads) != 0 {
		t.Fatalf("got %d uploads, want none", len(uploads))
	}
	var found bool
	for _, status := range statuses {
		if status.IsError && strings.Contains(status.Message, "packaging results failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("no packaging failure report in %+v", statuses)
	}
}

// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import "testing"

func TestClassifyStdoutDiscovery(t *testing.T) {
	tests := []struct {
		name string
		line string
		want uint64
	}{
		{"plain", "// ***** Found 42 benchmarks", 42},
		{"single", "// ***** Found 1 benchmark", 1},
		{"trailing text ignored", "// ***** Found 7 benchmarks in 3 assemblies", 7},
		{"no surrounding text", "// ***** Found 120", 120},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event := ClassifyStdout(test.line)
			if event.Kind != RunStarted {
				t.Fatalf("Kind = %v, want %v", event.Kind, RunStarted)
			}
			if event.Total != test.want {
				t.Errorf("Total = %d, want %d", event.Total, test.want)
			}
		})
	}
}

func TestClassifyStdoutDiscoveryExtractsFirstInteger(t *testing.T) {
	event := ClassifyStdout("// ***** Found 42 benchmarks across 3 types")
	if event.Kind != RunStarted || event.Total != 42 {
		t.Errorf("event = %+v, want RunStarted with Total=42", event)
	}
}

func TestClassifyStdoutProgress(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		wantRemaining uint64
		wantEstimate  string
	}{
		{"with estimate", "// ** Remained 10 2024-05-01 10:00", 10, "2024-05-01 10:00"},
		{"without estimate", "// ** Remained 41", 41, ""},
		{"estimate with suffix", "// ** Remained 3 2024-05-01 23:59 (0.5h)", 3, "2024-05-01 23:59"},
		{"zero remaining", "// ** Remained 0 2024-05-01 10:30", 0, "2024-05-01 10:30"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event := ClassifyStdout(test.line)
			if event.Kind != Progress {
				t.Fatalf("Kind = %v, want %v", event.Kind, Progress)
			}
			if event.Remaining != test.wantRemaining {
				t.Errorf("Remaining = %d, want %d", event.Remaining, test.wantRemaining)
			}
			if event.EstimatedFinish != test.wantEstimate {
				t.Errorf("EstimatedFinish = %q, want %q", event.EstimatedFinish, test.wantEstimate)
			}
		})
	}
}

func TestClassifyStdoutIgnored(t *testing.T) {
	lines := []string{
		"",
		"BenchmarkDotNet v0.13.12",
		"// Benchmark: Md5VsSha256.Sha256",
		"// ** something else",
		// A marker must sit at the line start and carry an integer;
		// leading whitespace breaks it.
		"***** Found 42 benchmarks",
		"  // ***** Found 42 benchmarks",
		"// ***** Found no benchmarks",
	}
	for _, line := range lines {
		if event := ClassifyStdout(line); event.Kind != Ignored {
			t.Errorf("ClassifyStdout(%q).Kind = %v, want %v", line, event.Kind, Ignored)
		}
	}
}

func TestClassifyStderrAlwaysFailure(t *testing.T) {
	// Markers carry no meaning on stderr, and the terminal empty line
	// is still reported.
	lines := []string{
		"Unhandled exception. System.IO.FileNotFoundException",
		"// ***** Found 42 benchmarks",
		"",
	}
	for _, line := range lines {
		event := ClassifyStderr(line)
		if event.Kind != Failure {
			t.Errorf("ClassifyStderr(%q).Kind = %v, want %v", line, event.Kind, Failure)
		}
		if event.Message != line {
			t.Errorf("Message = %q, want %q", event.Message, line)
		}
	}
}

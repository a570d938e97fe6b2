// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package bench defines the run identity and the output classifier
// shared by the benchfleet runner and collector.
//
// The classifier turns one line of benchmark harness output into a
// semantic event. BenchmarkDotNet announces the run size and per-item
// progress with fixed marker prefixes on stdout:
//
//	// ***** Found 42 benchmarks
//	// ** Remained 10 2024-05-01 10:00
//
// Everything else on stdout is noise and is ignored. Every line on
// stderr is a failure, no pattern matching applied.
//
// Classification is stateless per line; callers track the total
// announced by the discovery event for the remainder of a run.
package bench

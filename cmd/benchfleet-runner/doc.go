// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// benchfleet-runner executes a configured list of benchmark projects
// one at a time and reports progress and results to a benchfleet
// collector.
//
// For each (project, target framework) pair the runner optionally
// restores dependencies, launches the benchmark process, streams its
// stdout and stderr line by line into the output classifier, and
// forwards every classified event to the collector as it occurs.
// When the process exits the run's artifact directory is packaged
// into a single bundle, uploaded, and the local bundle deleted.
//
// Usage:
//
//	benchfleet-runner [flags] <projectPaths> <targetFrameworks> <instanceName> <serverAddress> <sharedSecret>
//
// projectPaths and targetFrameworks are ;-separated and paired
// positionally. Configuration errors abort before any process is
// spawned; everything after that is reported and survived.
package main

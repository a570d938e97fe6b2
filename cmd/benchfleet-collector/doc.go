// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// benchfleet-collector is the central collection service for
// distributed benchmark runs. Worker instances post status reports to
// /status as their benchmark processes emit progress, and upload the
// final result bundle to /result when a project completes.
//
// The collector authenticates every request against a shared secret,
// keeps the latest per-(instance, project) progress snapshot in
// memory for an optional progress renderer, and stores uploaded
// bundles under a date-partitioned directory tree, never overwriting
// an earlier upload with the same name.
//
// Progress state is intentionally not persisted: a collector restart
// forgets in-flight runs and rebuilds state from the next report.
package main

// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the shared plumbing for benchfleet
// binaries: the structured logger constructor and an HTTP server with
// managed lifecycle (readiness signal, graceful shutdown on context
// cancellation). The collector provides the http.Handler; routing and
// request handling live with it.
package service

// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package report implements the runner-to-collector reporting
// protocol: the wire field names shared by both sides, and the
// Reporter client that delivers status reports and result bundles
// with bounded retry.
//
// The protocol is deliberately plain HTTP: status reports are
// form-encoded POSTs to /status, result bundles are multipart POSTs
// to /result. Field names contain spaces — they are protocol
// constants, not Go identifiers, and changing them breaks every
// deployed runner and collector pair.
//
// Delivery is at-least-once with a fixed attempt cap and no backoff:
// a transport failure is retried immediately, an HTTP error status is
// final. Exhausting the cap drops the report — the system favors
// forward progress over strict delivery.
package report

// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"regexp"
	"strconv"
	"strings"
)

// RunIdentity names one benchmark run: a worker instance executing a
// single project. Assigned once when the project begins executing and
// never mutated — it is the correlation key for every status report
// and the storage-path prefix for the uploaded result bundle.
type RunIdentity struct {
	// Instance is the human-assigned worker instance name.
	Instance string

	// Project is the benchmark project name (project file base name
	// without extension).
	Project string
}

// Marker prefixes recognized on harness stdout. These are protocol
// constants matching BenchmarkDotNet console output — changing them
// breaks classification of real harness runs.
const (
	// DiscoveryMarker prefixes the line announcing the total number
	// of benchmarks in the run. Fires exactly once per run.
	DiscoveryMarker = "// ***** Found "

	// ProgressMarker prefixes the per-benchmark progress line with
	// the remaining count and an optional finish estimate.
	ProgressMarker = "// ** Remained "
)

// Kind discriminates classified events.
type Kind int

const (
	// Ignored is stdout noise: anything not carrying a marker.
	// Ignored lines must not be forwarded to the collector.
	Ignored Kind = iota

	// RunStarted is the discovery event establishing the total
	// benchmark count for the run.
	RunStarted

	// Progress carries the remaining benchmark count and, when the
	// harness has one, a raw "yyyy-MM-dd HH:mm" finish estimate.
	Progress

	// Failure is any stderr line, verbatim.
	Failure
)

// String returns the event kind name for logs and test output.
func (k Kind) String() string {
	switch k {
	case Ignored:
		return "ignored"
	case RunStarted:
		return "run_started"
	case Progress:
		return "progress"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is one classified line of harness output.
type Event struct {
	Kind Kind

	// Total is the benchmark count announced by a RunStarted event.
	Total uint64

	// Remaining is the count carried by a Progress event.
	Remaining uint64

	// EstimatedFinish is the raw "yyyy-MM-dd HH:mm" string from a
	// Progress event, or "" when the harness has no estimate yet.
	// It is forwarded unparsed; the collector validates the format.
	EstimatedFinish string

	// Message is the verbatim stderr line of a Failure event. May
	// be empty: the harness emits one empty stderr line at stream
	// end, and consumers treat it as the terminal signal.
	Message string
}

// firstInteger matches the first embedded decimal integer.
var firstInteger = regexp.MustCompile(`\d+`)

// finishEstimate matches an embedded "yyyy-MM-dd HH:mm" timestamp.
var finishEstimate = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}`)

// ClassifyStdout classifies one line of harness stdout. A line
// beginning with DiscoveryMarker yields RunStarted with the first
// embedded integer as the total, regardless of surrounding text. A
// line beginning with ProgressMarker yields Progress with the first
// embedded integer as the remaining count and, when present, the
// embedded timestamp as the raw finish estimate. Anything else,
// including the empty line, is Ignored.
func ClassifyStdout(line string) Event {
	if rest, ok := strings.CutPrefix(line, DiscoveryMarker); ok {
		if total, ok := embeddedInteger(rest); ok {
			return Event{Kind: RunStarted, Total: total}
		}
		return Event{Kind: Ignored}
	}
	if rest, ok := strings.CutPrefix(line, ProgressMarker); ok {
		remaining, ok := embeddedInteger(rest)
		if !ok {
			return Event{Kind: Ignored}
		}
		return Event{
			Kind:            Progress,
			Remaining:       remaining,
			EstimatedFinish: finishEstimate.FindString(rest),
		}
	}
	return Event{Kind: Ignored}
}

// ClassifyStderr classifies one line of harness stderr. Every stderr
// line is a Failure, unconditionally — including the empty line, which
// downstream consumers receive as the end-of-stream marker.
func ClassifyStderr(line string) Event {
	return Event{Kind: Failure, Message: line}
}

func embeddedInteger(s string) (uint64, bool) {
	match := firstInteger.FindString(s)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(match, 10, 64)
	if err != nil {
		// Digit run too long for uint64 — treat as unparseable.
		return 0, false
	}
	return value, true
}

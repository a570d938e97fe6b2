// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunKey identifies one run's progress entry: a worker instance
// executing one benchmark project.
type RunKey struct {
	Instance string
	Project  string
}

// Snapshot is the latest known progress of a run, derived entirely
// from the most recent status report. Total is established by the
// run's discovery event and does not decrease; Remaining satisfies
// 0 <= Remaining <= Total as reported.
type Snapshot struct {
	Remaining uint64
	Total     uint64

	// EstimatedFinish is the harness's finish estimate; zero when
	// the harness has none yet.
	EstimatedFinish time.Time

	// ReportedAt is the collector-side receipt time.
	ReportedAt time.Time
}

// RunState describes the run for progress display.
type RunState string

const (
	StateRunning  RunState = "Running"
	StateFinished RunState = "Finished"
	StateUploaded RunState = "Uploaded"
)

// ProgressListener receives progress update notifications, typically
// backing a terminal renderer. TimeRemaining is the harness estimate
// minus the worker's clock at report time, or zero when no estimate
// exists. Implementations must tolerate concurrent calls.
type ProgressListener interface {
	ProgressUpdated(key RunKey, snapshot Snapshot, state RunState, timeRemaining time.Duration)
}

// ProgressStore holds the latest progress snapshot per run. Entries
// for distinct runs update without contention; two reports for the
// same run race with last-write-wins semantics, matching arrival
// order at the store. State lives only in memory — a collector
// restart forgets it by design.
type ProgressStore struct {
	entries  sync.Map // RunKey -> Snapshot
	listener ProgressListener
	logger   *slog.Logger
}

// NewProgressStore creates an empty store. Panics if logger is nil.
func NewProgressStore(logger *slog.Logger) *ProgressStore {
	if logger == nil {
		panic("ProgressStore: logger is required")
	}
	return &ProgressStore{logger: logger}
}

// SetListener registers the progress listener. Call before the store
// receives traffic; the listener is optional and may be left unset.
func (s *ProgressStore) SetListener(listener ProgressListener) {
	s.listener = listener
}

// Update upserts the snapshot for key and notifies the listener.
func (s *ProgressStore) Update(key RunKey, snapshot Snapshot, state RunState, timeRemaining time.Duration) {
	s.entries.Store(key, snapshot)
	s.notify(key, snapshot, state, timeRemaining)
}

// MarkUploaded notifies the listener that the run's result bundle
// arrived. The stored snapshot, if any, is left as-is — upload ends
// the run, it is not a progress measurement.
func (s *ProgressStore) MarkUploaded(key RunKey) {
	snapshot, _ := s.Get(key)
	s.notify(key, snapshot, StateUploaded, 0)
}

// Get returns the latest snapshot for key.
func (s *ProgressStore) Get(key RunKey) (Snapshot, bool) {
	value, ok := s.entries.Load(key)
	if !ok {
		return Snapshot{}, false
	}
	return value.(Snapshot), true
}

// Len returns the number of runs with a stored snapshot.
func (s *ProgressStore) Len() int {
	count := 0
	s.entries.Range(func(any, any) bool {
		count++
		return true
	})
	return count
}

// notify delivers one update to the listener. Listener failures must
// not affect ingestion, so panics are contained here and logged.
func (s *ProgressStore) notify(key RunKey, snapshot Snapshot, state RunState, timeRemaining time.Duration) {
	if s.listener == nil {
		return
	}
	defer func() {
		if reason := recover(); reason != nil {
			s.logger.Error("progress listener panicked",
				"instance", key.Instance,
				"project", key.Project,
				"panic", reason,
			)
		}
	}()
	s.listener.ProgressUpdated(key, snapshot, state, timeRemaining)
}

// logListener is the built-in progress listener: one structured log
// line per update, in the shape an external renderer would display.
type logListener struct {
	logger *slog.Logger
}

func (l logListener) ProgressUpdated(key RunKey, snapshot Snapshot, state RunState, timeRemaining time.Duration) {
	completed := "NA"
	if snapshot.Total > 0 || snapshot.Remaining > 0 {
		completed = fmt.Sprintf("%d/%d", snapshot.Total-snapshot.Remaining, snapshot.Total)
	}
	eta := "NA"
	if timeRemaining > 0 {
		eta = timeRemaining.String()
	}
	l.logger.Info("progress",
		"instance", key.Instance,
		"project", key.Project,
		"state", string(state),
		"completed", completed,
		"eta", eta,
	)
}

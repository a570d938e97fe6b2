// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clk := Fake(start)

	if got := clk.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clk.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if got := clk.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockSet(t *testing.T) {
	clk := Fake(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))

	next := time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC)
	clk.Set(next)
	if got := clk.Now(); !got.Equal(next) {
		t.Errorf("Now() after Set = %v, want %v", got, next)
	}
}

func TestRealClockTracksTime(t *testing.T) {
	before := time.Now()
	got := Real().Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Real().Now() = %v, outside [%v, %v]", got, before, after)
	}
}

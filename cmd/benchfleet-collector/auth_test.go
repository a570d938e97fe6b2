// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "testing"

func TestAuthGateAcceptsExactSecret(t *testing.T) {
	gate := NewAuthGate("hunter2")
	if !gate.Check("hunter2") {
		t.Error("Check(exact secret) = false, want true")
	}
}

func TestAuthGateRejectsWrongCredentials(t *testing.T) {
	gate := NewAuthGate("hunter2")
	wrong := []string{
		"",
		"hunter",
		"hunter22",
		"Hunter2",
		"hunter2 ",
		DefaultSecret,
	}
	for _, credential := range wrong {
		if gate.Check(credential) {
			t.Errorf("Check(%q) = true, want false", credential)
		}
	}
}

func TestAuthGateEmptySecretUsesDefault(t *testing.T) {
	gate := NewAuthGate("")
	if !gate.Check(DefaultSecret) {
		t.Error("Check(DefaultSecret) = false, want true for unconfigured gate")
	}
	if gate.Check("anything-else") {
		t.Error("Check(anything-else) = true, want false")
	}
}

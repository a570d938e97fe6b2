// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
)

// Notifier is the external notification collaborator signalled when a
// result bundle arrives. Delivery is best-effort: the collector logs
// a failed notification and finishes the upload normally.
//
// Desktop or chat delivery mechanisms implement this interface out of
// tree; the built-in implementation writes a structured log line.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// logNotifier is the built-in Notifier.
type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier that records notifications in the
// collector log.
func NewLogNotifier(logger *slog.Logger) Notifier {
	return logNotifier{logger: logger}
}

func (n logNotifier) Notify(ctx context.Context, title, body string) error {
	n.logger.Info("notification", "title", title, "body", body)
	return nil
}

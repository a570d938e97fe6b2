// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benchfleet/benchfleet/lib/clock"
	"github.com/benchfleet/benchfleet/lib/report"
)

// maxUploadMemory bounds the in-memory portion of a parsed multipart
// upload; larger bundles spill to temporary files.
const maxUploadMemory = 32 << 20

// Handler is the collector's HTTP surface: liveness, status report
// ingestion, and result bundle ingestion. Requests are handled
// concurrently by net/http; all shared state lives in the concurrency-
// safe ProgressStore and ArtifactStore.
type Handler struct {
	auth     *AuthGate
	progress *ProgressStore
	store    *ArtifactStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// HandlerConfig configures a Handler. All fields except Clock are
// required.
type HandlerConfig struct {
	Auth     *AuthGate
	Progress *ProgressStore
	Store    *ArtifactStore
	Notifier Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

// NewHandler creates the collector handler. Panics on missing
// required dependencies.
func NewHandler(config HandlerConfig) *Handler {
	if config.Auth == nil {
		panic("Handler: Auth is required")
	}
	if config.Progress == nil {
		panic("Handler: Progress is required")
	}
	if config.Store == nil {
		panic("Handler: Store is required")
	}
	if config.Notifier == nil {
		panic("Handler: Notifier is required")
	}
	if config.Logger == nil {
		panic("Handler: Logger is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Handler{
		auth:     config.Auth,
		progress: config.Progress,
		store:    config.Store,
		notifier: config.Notifier,
		clock:    clk,
		logger:   config.Logger,
	}
}

// Routes returns the collector's route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("POST /status", h.handleStatus)
	mux.HandleFunc("POST /result", h.handleResult)
	return mux
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received ping", "remote_addr", r.RemoteAddr)
	_, _ = w.Write([]byte("pong"))
}

// handleStatus ingests one status report. Error taxonomy: wrong
// content type or unparsable required fields are client errors (400),
// a bad credential is 401; nothing here faults the collector.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !hasContentType(r, "application/x-www-form-urlencoded") {
		h.logger.Debug("status request with invalid media type", "content_type", r.Header.Get("Content-Type"))
		http.Error(w, "Unsupported Media Type", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form body", http.StatusBadRequest)
		return
	}
	if !h.auth.Check(r.PostFormValue(report.FieldPassword)) {
		h.logger.Debug("unauthorized status request", "remote_addr", r.RemoteAddr)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	key := RunKey{
		Instance: r.PostFormValue(report.FieldInstance),
		Project:  r.PostFormValue(report.FieldProject),
	}

	// Anything other than an explicit "false" takes the error path,
	// matching the historical collector.
	if r.PostFormValue(report.FieldIsError) != "false" {
		h.logger.Info("instance reported error",
			"instance", key.Instance,
			"project", key.Project,
			"message", r.PostFormValue(report.FieldMessage),
		)
		return
	}

	remaining, err := strconv.ParseUint(r.PostFormValue(report.FieldRemaining), 10, 64)
	if err != nil {
		http.Error(w, `Invalid "remaining benchmarks" provided.`, http.StatusBadRequest)
		return
	}
	total, err := strconv.ParseUint(r.PostFormValue(report.FieldTotal), 10, 64)
	if err != nil {
		http.Error(w, `Invalid "total benchmark count" provided.`, http.StatusBadRequest)
		return
	}
	// Every stored snapshot satisfies remaining <= total; a report
	// claiming more work left than the run contains is nonsense.
	if remaining > total {
		http.Error(w, `"remaining benchmarks" exceeds "total benchmark count".`, http.StatusBadRequest)
		return
	}

	rawEstimate := r.PostFormValue(report.FieldEstimatedFinish)
	var estimatedFinish time.Time
	if rawEstimate != "" {
		estimatedFinish, err = time.Parse(report.TimeFormat, rawEstimate)
		if err != nil {
			http.Error(w, `Invalid "estimated finish" provided. (format is yyyy-MM-dd HH:mm)`, http.StatusBadRequest)
			return
		}
	}
	clientTime, err := time.Parse(report.TimeFormat, r.PostFormValue(report.FieldCurrentTime))
	if err != nil {
		http.Error(w, `Invalid "current time" provided. (format is yyyy-MM-dd HH:mm)`, http.StatusBadRequest)
		return
	}

	// Remaining time until the estimated finish, measured against
	// the worker's own clock so collector/worker skew cancels out.
	var timeRemaining time.Duration
	if rawEstimate != "" {
		timeRemaining = estimatedFinish.Sub(clientTime)
	}

	state := StateRunning
	if remaining == 0 {
		state = StateFinished
	}

	h.logger.Info("status report",
		"instance", key.Instance,
		"project", key.Project,
		"completed", fmt.Sprintf("%d/%d", total-remaining, total),
		"estimated_finish", rawEstimate,
	)
	h.progress.Update(key, Snapshot{
		Remaining:       remaining,
		Total:           total,
		EstimatedFinish: estimatedFinish,
		ReportedAt:      h.clock.Now(),
	}, state, timeRemaining)
}

// handleResult ingests one uploaded result bundle.
func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	if !hasContentType(r, "multipart/form-data") {
		h.logger.Debug("result request with invalid media type", "content_type", r.Header.Get("Content-Type"))
		http.Error(w, "Unsupported Media Type", http.StatusBadRequest)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Malformed multipart body", http.StatusBadRequest)
		return
	}
	if !h.auth.Check(r.PostFormValue(report.FieldPassword)) {
		h.logger.Debug("unauthorized result request", "remote_addr", r.RemoteAddr)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	key := RunKey{
		Instance: r.PostFormValue(report.FieldInstance),
		Project:  r.PostFormValue(report.FieldProject),
	}
	if !safePathComponent(key.Instance) || !safePathComponent(key.Project) {
		http.Error(w, "Invalid instance or project name.", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile(report.FileField)
	if err != nil {
		h.logger.Debug("result request with missing file", "instance", key.Instance)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, digest, err := h.store.Save(key, header.Filename, file)
	if err != nil {
		h.logger.Error("storing result bundle failed",
			"instance", key.Instance,
			"project", key.Project,
			"error", err,
		)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	h.notify(r.Context(), key, path)
	h.progress.MarkUploaded(key)
	h.logger.Info("result bundle received",
		"instance", key.Instance,
		"project", key.Project,
		"path", path,
		"blake3", digest,
	)
}

// notify signals the notification collaborator. Best-effort: failure
// is logged and the upload still succeeds.
func (h *Handler) notify(ctx context.Context, key RunKey, path string) {
	title := fmt.Sprintf("Instance %s finished.", key.Instance)
	body := fmt.Sprintf("%s finished project %s. Results are saved under %s.", key.Instance, key.Project, path)
	if err := h.notifier.Notify(ctx, title, body); err != nil {
		h.logger.Warn("notification failed",
			"instance", key.Instance,
			"project", key.Project,
			"error", err,
		)
	}
}

// hasContentType reports whether the request's media type matches.
func hasContentType(r *http.Request, mediaType string) bool {
	parsed, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return parsed == mediaType
}

// safePathComponent rejects names that could escape the storage tree
// when joined into a path. The runner derives both names from local
// input, so legitimate traffic never trips this.
func safePathComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

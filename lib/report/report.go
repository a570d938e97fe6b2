// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benchfleet/benchfleet/lib/bench"
	"github.com/benchfleet/benchfleet/lib/clock"
)

// Wire field names. These match the original collector protocol
// exactly, spaces included.
const (
	FieldPassword        = "password"
	FieldInstance        = "instance name"
	FieldProject         = "benchmark project"
	FieldMessage         = "message"
	FieldIsError         = "is error"
	FieldRemaining       = "remaining benchmarks"
	FieldTotal           = "total benchmark count"
	FieldEstimatedFinish = "estimated finish"
	FieldCurrentTime     = "current time"

	// FileField is the multipart part name carrying the result
	// bundle on /result.
	FileField = "BenchmarkResults"
)

// TimeFormat is the wire format for "estimated finish" and
// "current time" values (yyyy-MM-dd HH:mm).
const TimeFormat = "2006-01-02 15:04"

// DefaultMaxRetries is the delivery retry cap: 20 retries, 21
// attempts total.
const DefaultMaxRetries = 20

// Status is one status report. Remaining, Total, and EstimatedFinish
// are only sent when IsError is false.
type Status struct {
	Identity        bench.RunIdentity
	Message         string
	IsError         bool
	Remaining       uint64
	Total           uint64
	EstimatedFinish string // raw "yyyy-MM-dd HH:mm", or "" for no estimate
}

// Doer executes one HTTP request. *http.Client satisfies it; tests
// substitute a fake to count attempts and inject transport failures.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config configures a Reporter.
type Config struct {
	// ServerURL is the collector base URL, e.g. "http://collector:8080".
	// Required.
	ServerURL string

	// Secret is the shared credential sent with every report. Required.
	Secret string

	// MaxRetries is the number of re-attempts after the first failed
	// delivery. Zero means deliver exactly once; a negative value
	// selects DefaultMaxRetries.
	MaxRetries int

	// Client executes requests. Defaults to http.DefaultClient.
	Client Doer

	// Clock stamps the "current time" field. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Reporter delivers status reports and result bundles to the
// collector. All fields are set at construction and never mutated, so
// a single Reporter is safe for concurrent use by the stdout and
// stderr drain goroutines of a supervised process.
type Reporter struct {
	serverURL  string
	secret     string
	maxRetries int
	client     Doer
	clock      clock.Clock
	logger     *slog.Logger
}

// New creates a Reporter. Panics if ServerURL, Secret, or Logger is
// missing — a reporter without them can only misbehave silently.
func New(config Config) *Reporter {
	if config.ServerURL == "" {
		panic("report.Reporter: ServerURL is required")
	}
	if config.Secret == "" {
		panic("report.Reporter: Secret is required")
	}
	if config.Logger == nil {
		panic("report.Reporter: Logger is required")
	}
	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Reporter{
		serverURL:  strings.TrimRight(config.ServerURL, "/"),
		secret:     config.Secret,
		maxRetries: maxRetries,
		client:     client,
		clock:      clk,
		logger:     config.Logger,
	}
}

// Status delivers one status report to the collector's /status
// endpoint. The "current time" field is stamped from the clock at
// call time. Returns an error when delivery ultimately failed (cap
// exhausted) or the collector rejected the report; both are non-fatal
// to the run and callers log and continue.
func (r *Reporter) Status(ctx context.Context, status Status) error {
	form := url.Values{}
	form.Set(FieldPassword, r.secret)
	form.Set(FieldInstance, status.Identity.Instance)
	form.Set(FieldProject, status.Identity.Project)
	form.Set(FieldMessage, status.Message)
	if status.IsError {
		form.Set(FieldIsError, "true")
	} else {
		form.Set(FieldIsError, "false")
		form.Set(FieldRemaining, strconv.FormatUint(status.Remaining, 10))
		form.Set(FieldTotal, strconv.FormatUint(status.Total, 10))
		form.Set(FieldEstimatedFinish, status.EstimatedFinish)
		form.Set(FieldCurrentTime, r.clock.Now().Format(TimeFormat))
	}
	body := form.Encode()

	return r.deliver(ctx, "status report", func() (*http.Request, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/status", strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return request, nil
	})
}

// Upload delivers the result bundle at archivePath to the collector's
// /result endpoint as a multipart POST. The multipart body is rebuilt
// from the file for every attempt so a mid-transfer failure never
// resends a truncated stream.
func (r *Reporter) Upload(ctx context.Context, identity bench.RunIdentity, archivePath string) error {
	return r.deliver(ctx, "result upload", func() (*http.Request, error) {
		body, contentType, err := r.multipartBody(identity, archivePath)
		if err != nil {
			return nil, err
		}
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, r.serverURL+"/result", body)
		if err != nil {
			return nil, err
		}
		request.Header.Set("Content-Type", contentType)
		return request, nil
	})
}

// multipartBody builds the /result request body: credential and run
// identity fields plus the archive as the BenchmarkResults file part.
func (r *Reporter) multipartBody(identity bench.RunIdentity, archivePath string) (io.Reader, string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, "", fmt.Errorf("opening result bundle: %w", err)
	}
	defer file.Close()

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	fields := map[string]string{
		FieldPassword: r.secret,
		FieldInstance: identity.Instance,
		FieldProject:  identity.Project,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing field %q: %w", name, err)
		}
	}
	part, err := writer.CreateFormFile(FileField, filepath.Base(archivePath))
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copying result bundle: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finishing multipart body: %w", err)
	}
	return &buffer, writer.FormDataContentType(), nil
}

// attemptOutcome is the explicit per-attempt result consumed by the
// retry loop: only transport failures are retried.
type attemptOutcome int

const (
	delivered attemptOutcome = iota
	transportFailed
)

// deliver runs the bounded retry loop: up to maxRetries+1 attempts,
// immediate re-attempt on transport failure, no backoff. An HTTP
// error status is final — the collector received and rejected the
// report, so resending it cannot help.
func (r *Reporter) deliver(ctx context.Context, what string, build func() (*http.Request, error)) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		request, err := build()
		if err != nil {
			// Building the request re-reads local state (the result
			// bundle file); failure here is not transport-related
			// and retrying cannot help.
			return err
		}

		outcome, statusCode, err := r.attempt(request)
		if outcome == delivered {
			if statusCode/100 != 2 {
				r.logger.Warn("collector rejected report",
					"kind", what,
					"status", statusCode,
				)
				return fmt.Errorf("%s rejected by collector: HTTP %d", what, statusCode)
			}
			return nil
		}

		lastErr = err
		r.logger.Warn("report delivery attempt failed",
			"kind", what,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return fmt.Errorf("%s dropped after %d attempts: %w", what, r.maxRetries+1, lastErr)
}

// attempt executes one delivery attempt. Delivery succeeds on any
// HTTP response, whatever the status code; only a transport-level
// error counts as a failed attempt.
func (r *Reporter) attempt(request *http.Request) (attemptOutcome, int, error) {
	response, err := r.client.Do(request)
	if err != nil {
		return transportFailed, 0, err
	}
	// Drain and close so the underlying connection is reused.
	_, _ = io.Copy(io.Discard, response.Body)
	response.Body.Close()
	return delivered, response.StatusCode, nil
}

// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/benchfleet/benchfleet/lib/clock"
	"github.com/zeebo/blake3"
)

// dayFormat partitions stored bundles by upload date.
const dayFormat = "2006-01-02"

// ArtifactStore persists uploaded result bundles under
// {root}/{instance}/{project}/{yyyy-MM-dd}/{fileName}, renaming on
// collision so no successful upload ever destroys stored data.
//
// The collision probe is check-then-create, not atomic across
// processes. That is acceptable because an instance runs one project
// at a time: concurrent uploads of the same (instance, project, date,
// name) do not occur by construction. Revisit if runs ever execute
// projects in parallel.
type ArtifactStore struct {
	root   string
	clock  clock.Clock
	logger *slog.Logger
}

// NewArtifactStore creates a store rooted at root. Panics if root is
// empty or logger is nil.
func NewArtifactStore(root string, clk clock.Clock, logger *slog.Logger) *ArtifactStore {
	if root == "" {
		panic("ArtifactStore: root is required")
	}
	if logger == nil {
		panic("ArtifactStore: logger is required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &ArtifactStore{root: root, clock: clk, logger: logger}
}

// Save streams content to the date-partitioned path for the run,
// resolving a collision-free filename first. Returns the final path
// and the hex BLAKE3 digest of the stored bytes.
func (s *ArtifactStore) Save(key RunKey, fileName string, content io.Reader) (string, string, error) {
	// The filename arrives from the network; keep only its base so
	// it cannot navigate outside the partition directory.
	fileName = filepath.Base(fileName)
	if fileName == "." || fileName == string(filepath.Separator) || fileName == "" {
		return "", "", fmt.Errorf("unusable result file name %q", fileName)
	}

	directory := filepath.Join(s.root, key.Instance, key.Project, s.clock.Now().Format(dayFormat))
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", "", fmt.Errorf("creating result directory: %w", err)
	}

	path := CheckedSave(filepath.Join(directory, fileName))
	file, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("creating result file: %w", err)
	}

	hasher := blake3.New()
	_, err = io.Copy(io.MultiWriter(file, hasher), content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// A truncated bundle is worse than none: remove it so a
		// retried upload does not collide with its own debris.
		os.Remove(path)
		return "", "", fmt.Errorf("writing result file: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	s.logger.Info("result bundle stored",
		"instance", key.Instance,
		"project", key.Project,
		"path", path,
		"blake3", digest,
	)
	return path, digest, nil
}

// CheckedSave resolves a collision-free destination for path. If
// nothing exists at path it is returned unchanged; otherwise an
// incrementing integer is inserted before the extension
// ("name.ext" → "name 1.ext", "name 2.ext", …) until an unused path
// is found. The returned path never currently exists, so an upload
// can never overwrite earlier data.
func CheckedSave(path string) string {
	if !pathExists(path) {
		return path
	}
	extension := filepath.Ext(path)
	stem := strings.TrimSuffix(path, extension)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s %d%s", stem, i, extension)
		if !pathExists(candidate) {
			return candidate
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

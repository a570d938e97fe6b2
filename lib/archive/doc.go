// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive packages a run's artifact directory into a single
// result bundle for upload.
//
// Two formats are supported: zip (the default, openable anywhere)
// and tar+zstd (better ratios for the text-heavy reports benchmark
// harnesses produce). Both use klauspost/compress — flate as the zip
// deflate implementation, zstd for the tar variant.
package archive

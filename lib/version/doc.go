// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for switchboard binaries.
//
// [GitCommit], [GitDirty], [BuildTime], and [Version] are injected at
// build time with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/switchboard/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without injection they read "unknown" and "0.1.0-dev".
package version

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads switchboard server configuration.
//
// Configuration comes from a single file named either by the
// SWITCHBOARD_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no search path.
// Values in the file are merged over [Default].
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed; anything else is YAML. Both use the same
// field names.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without an explicit section turns debug off.
//
// After loading, ${VAR} and ${VAR:-default} patterns in path-like
// fields (listen address, htdocs, redirect targets) are expanded from
// the process environment. No environment variable overrides a config
// value directly.
package config

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Switchboard serves static files and a WebSocket RPC gateway from one
// HTTP listener, and runs a task scheduler alongside.
//
// The gateway is mounted at the configured prefix (default
// "[/]socket", served at /socket) with the echo diagnostic service
// registered on that channel. When scheduler.stats is set, a task logs
// the live connection count at each occurrence of that cron
// expression.
package main

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpfront is the HTTP side of a switchboard server: a chi
// router that serves static files, answers configured permanent
// redirects, and mounts the gateway's WebSocket endpoint.
//
// Middleware order is request id, real IP, request logging (debug
// only), panic recovery, then redirects. The gateway endpoint sits
// behind the same chain; the response writer wrappers used here keep
// http.Hijacker available so the WebSocket upgrade still works.
package httpfront

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides helpers shared by switchboard tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used when a test waits on a channel fed by another
// goroutine (gateway read loops, scheduler ticks, event observers).
// The timeout only guards against a hung test; it is never part of the
// behavior under test.
//
// [UniqueID] produces distinct correlation ids for envelopes sent by
// concurrent test clients.
package testutil

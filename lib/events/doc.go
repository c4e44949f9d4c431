// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package events is a small typed publish/subscribe bus. Each emitting
// component (the gateway, the scheduler) owns one Bus parameterized by
// its own event type, so observers receive concrete values rather than
// untyped argument lists.
//
// Event names form an open set: components publish a few built-in names
// ("run", "error", "connect", "close") and forward any other name they
// are asked to publish without interpreting it. Subscribe to a single
// name, or to every name with SubscribeAll.
//
// Observers run synchronously in the publishing goroutine, in
// subscription order. A panicking observer is recovered and reported
// through the bus's panic hook; it does not stop delivery to the
// remaining observers.
package events

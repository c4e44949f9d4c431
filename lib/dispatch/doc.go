// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns inbound payloads into service invocations and
// invocation results into response envelopes.
//
// For each payload the Dispatcher:
//
//  1. parses it; an unparseable payload gets "Invalid request" with the
//     raw payload echoed and no id
//  2. stamps the connection's channel onto the request and validates it
//  3. resolves the service in the registry, and the method on the
//     service
//  4. builds a service.Call carrying the gateway, the connection, and
//     the request
//  5. invokes the method and waits for its single Result
//  6. encodes the response and writes it to the originating connection
//
// A panic anywhere in those steps becomes an error response. Every
// payload produces exactly one write, to the connection it came from;
// the Dispatcher never writes elsewhere and never changes the registry.
//
// Dispatch blocks until the handler completes. Transports call it from
// a goroutine of their own so that slow handlers never stall a read
// loop.
package dispatch

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway accepts persistent WebSocket connections and routes
// the envelopes they carry to registered services.
//
// A Gateway owns one service.Registry, one connection pool, and one
// dispatch.Dispatcher. Nothing is shared between gateways. Mount it on
// an HTTP router under a path prefix; every connection accepted under
// that prefix belongs to the channel named by the prefix for its whole
// lifetime:
//
//	gw := gateway.New(gateway.Options{Logger: logger})
//	if err := gw.AddService(echo.New()); err != nil {
//	    return err
//	}
//	gw.InstallHandlers(router, gateway.HandlerOptions{Prefix: gateway.DefaultChannel})
//
// The default prefix "[/]socket" is mounted at the HTTP path "/socket";
// the bracketed form is kept as the channel name.
//
// Each connection has one read loop. Every message it reads is handed
// off as a deferred unit of work (a new goroutine unless
// Options.Defer says otherwise), so a slow or failing handler never
// stalls reading. Responses are therefore written in completion order,
// which is why envelopes carry a correlation id. At most
// Options.MaxInFlight messages per connection are in dispatch at once;
// beyond that the read loop waits, pushing back on the client.
//
// Text frames carry JSON envelopes and binary frames carry CBOR
// envelopes. A response always uses the frame type of its request.
//
// # Events
//
// Observers subscribe with On to "connect", "close", and "error". An
// "error" event is published when a connection ends for a reason other
// than a normal close; "close" follows it.
package gateway

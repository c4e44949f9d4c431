// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service holds the units that a switchboard gateway dispatches
// to and the per-channel registry that names them.
//
// A Service is a named table of method handlers. Methods are registered
// explicitly with Handle; there is no reflection-based discovery. A
// Registry maps (channel, service name) pairs to Service instances and
// is owned by a single gateway:
//
//	echo := service.NewService("echo")
//	echo.Handle("ping", func(ctx context.Context, call *service.Call) (any, error) {
//	    return call.Arg(0), nil
//	})
//	if err := registry.AddService("[/]socket", echo); err != nil {
//	    return err
//	}
//
// Handlers receive a Call carrying the owning gateway, the originating
// connection, and the parsed request ahead of the request's own
// arguments, so a handler can reply to, inspect, or broadcast from its
// caller without global lookups.
//
// Invoke runs a handler on its own goroutine and returns a channel that
// yields exactly one Result. Handlers that do blocking I/O simply block
// inside that goroutine; the gateway's read loop is never involved.
//
// # Registration policy
//
// AddService rejects a second, different Service under a name already
// used in the same channel (ErrDuplicateService). GetOrCreateService
// never replaces anything: it returns the installed Service, creating
// an empty one only when the name is free.
package service

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package echo provides a diagnostic service for exercising a
// gateway from a client.
package echo

import (
	"context"
	"errors"

	"github.com/bureau-foundation/switchboard/lib/service"
)

// Name is the service name New registers under.
const Name = "echo"

// New returns the echo service with these methods:
//
//	echo(args...)        returns args unchanged
//	ping([value])        returns value, or "pong" with no arguments
//	whoami()             returns the caller's connection id and channel
//	connections()        returns the live connection count on the caller's channel
//	broadcast(message)   sends message to the caller's channel, returns deliveries
func New() *service.Service {
	svc := service.NewService(Name)
	svc.Handle("echo", func(ctx context.Context, call *service.Call) (any, error) {
		return call.Args(), nil
	})
	svc.Handle("ping", func(ctx context.Context, call *service.Call) (any, error) {
		if len(call.Args()) == 0 {
			return "pong", nil
		}
		return call.Arg(0), nil
	})
	svc.Handle("whoami", func(ctx context.Context, call *service.Call) (any, error) {
		return map[string]any{
			"id":      call.Conn.ID(),
			"channel": call.Conn.Channel(),
		}, nil
	})
	svc.Handle("connections", func(ctx context.Context, call *service.Call) (any, error) {
		return call.Gateway.Connections(call.Conn.Channel()), nil
	})
	svc.Handle("broadcast", func(ctx context.Context, call *service.Call) (any, error) {
		if len(call.Args()) != 1 {
			return nil, errors.New("broadcast takes exactly one argument")
		}
		return call.Gateway.Broadcast(ctx, call.Conn.Channel(), call.Arg(0)), nil
	})
	return svc
}

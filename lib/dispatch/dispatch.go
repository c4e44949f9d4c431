// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/switchboard/lib/envelope"
	"github.com/bureau-foundation/switchboard/lib/netutil"
	"github.com/bureau-foundation/switchboard/lib/service"
)

const (
	// MessageTimeout is the error text for a call that exceeded
	// Options.CallTimeout.
	MessageTimeout = "Timeout"

	// MessageCanceled is the error text for a call abandoned because
	// its connection went away.
	MessageCanceled = "Canceled"
)

// Options configures a Dispatcher.
type Options struct {
	// Registry resolves services. Required.
	Registry *service.Registry

	// Gateway is handed to handlers in every Call. May be nil in
	// tests that do not exercise it.
	Gateway service.Gateway

	// CallTimeout bounds each invocation. Zero means no bound.
	CallTimeout time.Duration

	Logger *slog.Logger
}

// Dispatcher evaluates payloads against a Registry. Safe for
// concurrent use.
type Dispatcher struct {
	registry    *service.Registry
	gateway     service.Gateway
	callTimeout time.Duration
	logger      *slog.Logger
}

// New returns a Dispatcher. Panics if options.Registry is nil.
func New(options Options) *Dispatcher {
	if options.Registry == nil {
		panic("dispatch: nil registry")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		registry:    options.Registry,
		gateway:     options.Gateway,
		callTimeout: options.CallTimeout,
		logger:      logger,
	}
}

// Dispatch evaluates frame and writes the response to conn using the
// frame's codec. The returned error is the write error, if any; the
// dispatcher has already logged it.
func (d *Dispatcher) Dispatch(ctx context.Context, conn service.Conn, frame envelope.Frame) error {
	if frame.Codec == nil {
		frame.Codec = envelope.JSON
	}
	response := d.Evaluate(ctx, conn, frame)

	data := d.encode(frame, response)
	if err := conn.Write(ctx, envelope.Frame{Codec: frame.Codec, Data: data}); err != nil {
		level := slog.LevelWarn
		if netutil.IsExpectedCloseError(err) || ctx.Err() != nil {
			level = slog.LevelDebug
		}
		d.logger.Log(ctx, level, "response undeliverable",
			"connection", conn.ID(),
			"error", err,
		)
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// Evaluate produces the response for frame without writing it. It
// never panics.
func (d *Dispatcher) Evaluate(ctx context.Context, conn service.Conn, frame envelope.Frame) (response *envelope.Response) {
	codec := frame.Codec
	if codec == nil {
		codec = envelope.JSON
	}

	var request *envelope.Request
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("dispatch panicked",
				"connection", conn.ID(),
				"panic", recovered,
			)
			message := fmt.Sprintf("internal error: %v", recovered)
			if request != nil {
				response = envelope.Failure(request, message)
			} else {
				response = envelope.Rejected(codec, frame.Data, message)
			}
		}
	}()

	request, err := envelope.Parse(codec, frame.Data)
	if err != nil {
		d.logger.Debug("rejected payload", "connection", conn.ID(), "error", err)
		return envelope.Rejected(codec, frame.Data, envelope.MessageInvalidRequest)
	}

	// The connection's channel is authoritative: a client cannot
	// address services outside the channel it connected to.
	if channel := conn.Channel(); channel != "" {
		request.Channel = channel
	}

	if err := request.Validate(); err != nil {
		d.logger.Debug("rejected request", "connection", conn.ID(), "error", err)
		return envelope.Failure(request, envelope.MessageInvalidRequest)
	}

	svc := d.registry.GetService(request.Channel, request.Service)
	if svc == nil {
		return envelope.Failure(request, envelope.ServiceNotFound(request.Channel, request.Service))
	}
	if _, ok := svc.Method(request.Method); !ok {
		return envelope.Failure(request, envelope.MethodNotFound(request.Service, request.Method))
	}

	call := &service.Call{
		Gateway: d.gateway,
		Conn:    conn,
		Request: request,
		Codec:   codec,
	}
	return d.invoke(ctx, svc, call)
}

func (d *Dispatcher) invoke(ctx context.Context, svc *service.Service, call *service.Call) *envelope.Response {
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	if ctx.Err() != nil {
		return d.abandoned(ctx, call)
	}

	started := time.Now()
	select {
	case result := <-svc.Invoke(ctx, call):
		if result.Err != nil {
			// A handler that gives up because its context ended
			// reports the same outcome as one that never returned.
			if ctx.Err() != nil && errors.Is(result.Err, ctx.Err()) {
				return d.abandoned(ctx, call)
			}
			d.logger.Debug("call failed",
				"target", call.Request.Target(),
				"method", call.Request.Method,
				"error", result.Err,
			)
			return envelope.Failure(call.Request, result.Err.Error())
		}
		d.logger.Debug("call completed",
			"target", call.Request.Target(),
			"method", call.Request.Method,
			"duration", time.Since(started),
		)
		return envelope.Success(call.Request, result.Value)

	case <-ctx.Done():
		return d.abandoned(ctx, call)
	}
}

func (d *Dispatcher) abandoned(ctx context.Context, call *service.Call) *envelope.Response {
	message := MessageCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		message = MessageTimeout
	}
	d.logger.Debug("call abandoned",
		"target", call.Request.Target(),
		"method", call.Request.Method,
		"error", ctx.Err(),
	)
	return envelope.Failure(call.Request, message)
}

// encode serializes response. A handler result that cannot be encoded
// is replaced by an error response so that the client still receives
// exactly one reply.
func (d *Dispatcher) encode(frame envelope.Frame, response *envelope.Response) []byte {
	data, err := envelope.Serialize(frame.Codec, response)
	if err == nil {
		return data
	}
	d.logger.Warn("response not encodable", "codec", frame.Codec.Name(), "error", err)

	message := fmt.Sprintf("internal error: %v", err)
	var fallback *envelope.Response
	if request, ok := response.Request.(*envelope.Request); ok {
		fallback = envelope.Failure(request, message)
	} else {
		fallback = envelope.Rejected(frame.Codec, frame.Data, message)
	}
	data, err = envelope.Serialize(frame.Codec, fallback)
	if err != nil {
		// The request itself carried something unencodable; drop
		// the echo rather than the reply.
		fallback.Request = nil
		data, _ = envelope.Serialize(frame.Codec, fallback)
	}
	return data
}

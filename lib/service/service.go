// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bureau-foundation/switchboard/lib/envelope"
)

// ErrMethodNotFound is returned by Invoke when the service has no
// handler for the requested method.
var ErrMethodNotFound = errors.New("method not found")

// Handler implements one service method. Return a value for the
// response field or an error whose text becomes the error field.
type Handler func(ctx context.Context, call *Call) (any, error)

// Result is the outcome of one invocation. Exactly one of Value and
// Err is meaningful: when Err is non-nil, Value is ignored.
type Result struct {
	Value any
	Err   error
}

// Conn is the originating connection of a call.
type Conn interface {
	// ID is unique among the gateway's live connections.
	ID() string

	// Channel is fixed when the connection is accepted.
	Channel() string

	// Write sends one frame to the client.
	Write(ctx context.Context, frame envelope.Frame) error
}

// Gateway is the view of the owning gateway available to handlers.
type Gateway interface {
	// DefaultChannel is the channel used when none is given.
	DefaultChannel() string

	// Connections returns the number of live connections on channel.
	Connections(channel string) int

	// Broadcast sends message, JSON-encoded, to every live connection
	// on channel and returns how many writes succeeded.
	Broadcast(ctx context.Context, channel string, message any) int
}

// Call is the context of one invocation: the three values a handler
// may need about its caller, followed by the request arguments.
type Call struct {
	Gateway Gateway
	Conn    Conn
	Request *envelope.Request

	// Codec is the encoding the request arrived in. Decode uses it to
	// convert opaque arguments into typed values.
	Codec envelope.Codec
}

// Args returns the request arguments.
func (c *Call) Args() []any {
	return c.Request.Args
}

// Arg returns argument i, or nil if there are not that many.
func (c *Call) Arg(i int) any {
	if i < 0 || i >= len(c.Request.Args) {
		return nil
	}
	return c.Request.Args[i]
}

// Decode converts argument i into target by re-encoding it with the
// call's codec.
func (c *Call) Decode(i int, target any) error {
	if i < 0 || i >= len(c.Request.Args) {
		return fmt.Errorf("argument %d: have %d arguments", i, len(c.Request.Args))
	}
	codec := c.Codec
	if codec == nil {
		codec = envelope.JSON
	}
	data, err := codec.Encode(c.Request.Args[i])
	if err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	if err := codec.Decode(data, target); err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	return nil
}

// Service is a named set of method handlers. Safe for concurrent use;
// methods may be added while the service is serving.
type Service struct {
	name string

	mu      sync.RWMutex
	methods map[string]Handler
}

// NewService returns a Service with no methods.
func NewService(name string) *Service {
	return &Service{
		name:    name,
		methods: make(map[string]Handler),
	}
}

// Name returns the name the service is registered under.
func (s *Service) Name() string { return s.name }

// Handle registers handler for method. Panics if method is empty or
// already has a handler.
func (s *Service) Handle(method string, handler Handler) {
	if method == "" {
		panic(fmt.Sprintf("service %q: empty method name", s.name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.methods[method]; exists {
		panic(fmt.Sprintf("service %q: duplicate handler for method %q", s.name, method))
	}
	s.methods[method] = handler
}

// Method returns the handler registered for name.
func (s *Service) Method(name string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handler, ok := s.methods[name]
	return handler, ok
}

// Methods returns the registered method names, sorted.
func (s *Service) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the handler for call.Request.Method on a new goroutine.
// The returned channel receives exactly one Result and is then closed.
// A panicking handler produces an error Result.
func (s *Service) Invoke(ctx context.Context, call *Call) <-chan Result {
	results := make(chan Result, 1)

	handler, ok := s.Method(call.Request.Method)
	if !ok {
		results <- Result{Err: fmt.Errorf("%w: %s.%s", ErrMethodNotFound, s.name, call.Request.Method)}
		close(results)
		return results
	}

	go func() {
		defer close(results)
		results <- s.run(ctx, handler, call)
	}()
	return results
}

func (s *Service) run(ctx context.Context, handler Handler, call *Call) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = Result{Err: fmt.Errorf("%s.%s: panic: %v", s.name, call.Request.Method, recovered)}
		}
	}()
	value, err := handler(ctx, call)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Value: value}
}

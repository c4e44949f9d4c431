// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bureau-foundation/switchboard/lib/dispatch"
	"github.com/bureau-foundation/switchboard/lib/envelope"
	"github.com/bureau-foundation/switchboard/lib/events"
	"github.com/bureau-foundation/switchboard/lib/netutil"
	"github.com/bureau-foundation/switchboard/lib/pool"
	"github.com/bureau-foundation/switchboard/lib/service"
)

// DefaultChannel is the channel, and the mount prefix, used when none
// is configured.
const DefaultChannel = "[/]socket"

// Event names published by a Gateway.
const (
	EventConnect = "connect"
	EventClose   = "close"
	EventError   = "error"
)

const (
	defaultReadLimit    = 1 << 20
	defaultWriteTimeout = 10 * time.Second
	defaultMaxInFlight  = 64
)

// ErrClosed is returned when registering with a closed Gateway.
var ErrClosed = errors.New("gateway closed")

// Options configures a Gateway. The zero value is usable.
type Options struct {
	// Channel is the default channel for AddService and
	// GetOrCreateService. Defaults to DefaultChannel.
	Channel string

	// ReadLimit caps the size of one inbound message in bytes.
	// Defaults to 1 MiB.
	ReadLimit int64

	// WriteTimeout bounds each frame write. Defaults to 10s.
	WriteTimeout time.Duration

	// CallTimeout bounds each service invocation. Zero means no
	// bound.
	CallTimeout time.Duration

	// MaxInFlight caps concurrent dispatches per connection.
	// Defaults to 64.
	MaxInFlight int

	// OriginPatterns lists additional origins allowed to open
	// cross-origin connections. Same-origin is always allowed.
	OriginPatterns []string

	// Defer runs one unit of dispatch work outside the read loop.
	// Defaults to starting a goroutine.
	Defer func(func())

	Logger *slog.Logger
}

// Event describes a connection lifecycle change.
type Event struct {
	Conn *Conn

	// Err is the reason the connection ended, for "error" events.
	Err error
}

// Gateway accepts connections and dispatches their messages.
type Gateway struct {
	channel        string
	readLimit      int64
	writeTimeout   time.Duration
	maxInFlight    int
	originPatterns []string
	deferWork      func(func())
	logger         *slog.Logger

	registry   *service.Registry
	pool       *pool.Pool[*Conn]
	dispatcher *dispatch.Dispatcher
	events     *events.Bus[Event]

	// ctx is the parent of every connection context. Close cancels
	// it.
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// lifecycle orders handler admission against Close: closed is
	// set and the first active.Add happens under it, so Close never
	// waits while a handler is being admitted.
	lifecycle sync.Mutex

	// active counts connection handlers and deferred dispatches so
	// that Close can wait for them.
	active sync.WaitGroup
}

var _ service.Gateway = (*Gateway)(nil)

// New returns a Gateway with an empty registry and pool.
func New(options Options) *Gateway {
	if options.Channel == "" {
		options.Channel = DefaultChannel
	}
	if options.ReadLimit <= 0 {
		options.ReadLimit = defaultReadLimit
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = defaultWriteTimeout
	}
	if options.MaxInFlight <= 0 {
		options.MaxInFlight = defaultMaxInFlight
	}
	if options.Defer == nil {
		options.Defer = func(work func()) { go work() }
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		channel:        options.Channel,
		readLimit:      options.ReadLimit,
		writeTimeout:   options.WriteTimeout,
		maxInFlight:    options.MaxInFlight,
		originPatterns: options.OriginPatterns,
		deferWork:      options.Defer,
		logger:         options.Logger,
		registry:       service.NewRegistry(),
		pool:           pool.New[*Conn](),
		ctx:            ctx,
		cancel:         cancel,
	}
	g.events = events.New[Event](func(name string, err error) {
		g.logger.Error("gateway observer panicked", "event", name, "error", err)
	})
	g.dispatcher = dispatch.New(dispatch.Options{
		Registry:    g.registry,
		Gateway:     g,
		CallTimeout: options.CallTimeout,
		Logger:      options.Logger,
	})
	return g
}

// Registry returns the gateway's service registry.
func (g *Gateway) Registry() *service.Registry { return g.registry }

// DefaultChannel returns the channel used when none is given.
func (g *Gateway) DefaultChannel() string { return g.channel }

// AddService registers svc in channel, or in the default channel when
// channel is omitted. See service.Registry.AddService for the
// duplicate-name policy.
func (g *Gateway) AddService(svc *service.Service, channel ...string) error {
	if g.closed.Load() {
		return ErrClosed
	}
	return g.registry.AddService(g.pick(channel), svc)
}

// GetOrCreateService returns the service registered as name in channel
// (default channel when omitted), creating it if necessary.
func (g *Gateway) GetOrCreateService(name string, channel ...string) *service.Service {
	return g.registry.GetOrCreateService(g.pick(channel), name)
}

func (g *Gateway) pick(channel []string) string {
	if len(channel) > 0 && channel[0] != "" {
		return channel[0]
	}
	return g.channel
}

// On subscribes observer to the named lifecycle event.
func (g *Gateway) On(name string, observer events.Observer[Event]) (unsubscribe func()) {
	return g.events.Subscribe(name, observer)
}

// Connections returns the number of live connections on channel, or
// on all channels when channel is empty.
func (g *Gateway) Connections(channel string) int {
	if channel == "" {
		return g.pool.Size()
	}
	count := 0
	g.pool.ForEach(func(conn *Conn) bool {
		if conn.channel == channel {
			count++
		}
		return true
	})
	return count
}

// Broadcast JSON-encodes message once and writes it as a text frame to
// every live connection on channel. Returns the number of successful
// writes. Failed writes are logged and skipped.
func (g *Gateway) Broadcast(ctx context.Context, channel string, message any) int {
	data, err := envelope.JSON.Encode(message)
	if err != nil {
		g.logger.Error("broadcast not encodable", "channel", channel, "error", err)
		return 0
	}
	frame := envelope.Frame{Codec: envelope.JSON, Data: data}

	delivered := 0
	g.pool.ForEach(func(conn *Conn) bool {
		if conn.channel != channel {
			return true
		}
		if err := conn.Write(ctx, frame); err != nil {
			g.logger.Debug("broadcast write failed", "connection", conn.id, "error", err)
			return true
		}
		delivered++
		return true
	})
	return delivered
}

// HandlerOptions configures InstallHandlers.
type HandlerOptions struct {
	// Prefix is both the channel name and, with "[/]" read as "/",
	// the HTTP path. Defaults to DefaultChannel.
	Prefix string
}

// Mux is satisfied by *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// InstallHandlers mounts the gateway's handshake endpoint on mux and
// returns the HTTP path it was mounted at.
func (g *Gateway) InstallHandlers(mux Mux, options HandlerOptions) string {
	prefix := options.Prefix
	if prefix == "" {
		prefix = DefaultChannel
	}
	path := MountPath(prefix)
	mux.Handle(path, g.Handler(prefix))
	g.logger.Info("gateway installed", "path", path, "channel", prefix)
	return path
}

// MountPath converts a channel prefix such as "[/]socket" into the
// HTTP path "/socket".
func MountPath(prefix string) string {
	path := strings.ReplaceAll(prefix, "[/]", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Handler returns an http.Handler that upgrades requests to WebSocket
// connections on channel.
func (g *Gateway) Handler(channel string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, channel)
	})
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, channel string) {
	if !g.admit() {
		http.Error(w, "gateway closed", http.StatusServiceUnavailable)
		return
	}
	defer g.active.Done()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		// Accept has already written an HTTP error response.
		g.logger.Debug("handshake rejected", "remote", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(g.readLimit)

	conn := newConn(g.ctx, uuid.NewString(), channel, r.RemoteAddr, ws, g.writeTimeout, g.maxInFlight)
	g.pool.Add(conn)
	g.logger.Info("connection opened",
		"connection", conn.id,
		"channel", channel,
		"remote", conn.remote,
		"connections", g.pool.Size(),
	)
	g.events.Publish(EventConnect, Event{Conn: conn})

	readErr := g.readLoop(conn)
	g.release(conn, readErr)
}

// admit counts a new handler in active unless the gateway is closed.
func (g *Gateway) admit() bool {
	g.lifecycle.Lock()
	defer g.lifecycle.Unlock()
	if g.closed.Load() {
		return false
	}
	g.active.Add(1)
	return true
}

// readLoop reads messages until the connection fails or closes and
// defers each one to the dispatcher. Returns the error that ended it.
func (g *Gateway) readLoop(conn *Conn) error {
	for {
		messageType, data, err := conn.ws.Read(conn.ctx)
		if err != nil {
			return err
		}

		frame := envelope.Frame{Codec: envelope.JSON, Data: data}
		if messageType == websocket.MessageBinary {
			frame.Codec = envelope.CBOR
		}

		select {
		case conn.slots <- struct{}{}:
		case <-conn.ctx.Done():
			return conn.ctx.Err()
		}

		g.active.Add(1)
		g.deferWork(func() {
			defer g.active.Done()
			defer func() { <-conn.slots }()
			defer func() {
				if recovered := recover(); recovered != nil {
					g.logger.Error("dispatch work panicked", "connection", conn.id, "panic", recovered)
				}
			}()
			g.dispatcher.Dispatch(conn.ctx, conn, frame)
		})
	}
}

// release removes conn from the pool and publishes its close. Runs
// exactly once per connection, from its own handler.
func (g *Gateway) release(conn *Conn, cause error) {
	conn.cancel()
	conn.ws.CloseNow()
	g.pool.Remove(conn)

	attributes := []any{
		"connection", conn.id,
		"channel", conn.channel,
		"connections", g.pool.Size(),
	}
	if cause != nil && !netutil.IsExpectedCloseError(cause) && !g.closed.Load() {
		g.logger.Warn("connection failed", append(attributes, "error", cause)...)
		g.events.Publish(EventError, Event{Conn: conn, Err: cause})
	} else {
		g.logger.Info("connection closed", attributes...)
	}
	g.events.Publish(EventClose, Event{Conn: conn})
}

// Close stops accepting connections, closes every live connection with
// a going-away status, and waits for their handlers and in-flight
// dispatches to finish.
func (g *Gateway) Close() error {
	g.lifecycle.Lock()
	wasClosed := g.closed.Swap(true)
	g.lifecycle.Unlock()
	if wasClosed {
		return nil
	}
	g.pool.ForEach(func(conn *Conn) bool {
		if err := conn.ws.Close(websocket.StatusGoingAway, "gateway closing"); err != nil {
			g.logger.Debug("close handshake failed", "connection", conn.id, "error", err)
		}
		return true
	})
	g.cancel()
	g.active.Wait()
	return nil
}

// Conn is one accepted connection.
type Conn struct {
	id           string
	channel      string
	remote       string
	ws           *websocket.Conn
	writeTimeout time.Duration

	// ctx ends when the connection is released or the gateway
	// closes. In-flight calls observe it.
	ctx    context.Context
	cancel context.CancelFunc

	// slots bounds concurrent dispatches.
	slots chan struct{}

	writeMu sync.Mutex
}

var _ service.Conn = (*Conn)(nil)

func newConn(parent context.Context, id, channel, remote string, ws *websocket.Conn, writeTimeout time.Duration, maxInFlight int) *Conn {
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		id:           id,
		channel:      channel,
		remote:       remote,
		ws:           ws,
		writeTimeout: writeTimeout,
		ctx:          ctx,
		cancel:       cancel,
		slots:        make(chan struct{}, maxInFlight),
	}
}

// ID returns the connection's unique id.
func (c *Conn) ID() string { return c.id }

// Channel returns the channel fixed at handshake.
func (c *Conn) Channel() string { return c.channel }

// RemoteAddr returns the client address reported by the HTTP server.
func (c *Conn) RemoteAddr() string { return c.remote }

// Write sends frame as a binary message when it holds CBOR and as a
// text message otherwise. Writes are serialized.
func (c *Conn) Write(ctx context.Context, frame envelope.Frame) error {
	messageType := websocket.MessageText
	if frame.Codec == envelope.CBOR {
		messageType = websocket.MessageBinary
	}

	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.Write(ctx, messageType, frame.Data); err != nil {
		return fmt.Errorf("connection %s: %w", c.id, err)
	}
	return nil
}

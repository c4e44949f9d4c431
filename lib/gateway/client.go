// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/bureau-foundation/switchboard/lib/envelope"
	"github.com/bureau-foundation/switchboard/lib/netutil"
)

// ErrClientClosed is returned by calls on a closed or disconnected
// Client.
var ErrClientClosed = errors.New("client closed")

// CallError is a response that carried an error field.
type CallError struct {
	Service string
	Method  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Method, e.Message)
}

// ClientOptions configures Dial.
type ClientOptions struct {
	// Channel is placed in outgoing requests. The server replaces it
	// with the connection's own channel. Defaults to DefaultChannel.
	Channel string

	// Binary sends CBOR in binary frames instead of JSON in text
	// frames.
	Binary bool

	// Header is added to the handshake request.
	Header http.Header

	// Notifications buffers frames that answer no pending call, such
	// as broadcasts. Defaults to 16. Frames beyond the buffer are
	// dropped.
	Notifications int
}

// Client is a gateway connection that correlates responses to calls by
// envelope id. Safe for concurrent use.
type Client struct {
	ws      *websocket.Conn
	codec   envelope.Codec
	channel string

	mu      sync.Mutex
	pending map[string]chan *envelope.Response
	err     error

	notifications chan []byte
	done          chan struct{}
}

// Dial opens a connection to the gateway endpoint at url, for example
// "ws://localhost:8080/socket".
func Dial(ctx context.Context, url string, options ClientOptions) (*Client, error) {
	if options.Channel == "" {
		options.Channel = DefaultChannel
	}
	if options.Notifications <= 0 {
		options.Notifications = 16
	}
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: options.Header})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	ws.SetReadLimit(defaultReadLimit)

	client := &Client{
		ws:            ws,
		codec:         envelope.JSON,
		channel:       options.Channel,
		pending:       make(map[string]chan *envelope.Response),
		notifications: make(chan []byte, options.Notifications),
		done:          make(chan struct{}),
	}
	if options.Binary {
		client.codec = envelope.CBOR
	}
	go client.readLoop()
	return client, nil
}

// Notifications delivers frames that did not answer a pending call.
// Closed when the connection ends.
func (c *Client) Notifications() <-chan []byte { return c.notifications }

// Call sends one request and waits for its response. A response with
// an error field is returned as-is with a nil error; use Invoke to
// have it converted to a *CallError.
func (c *Client) Call(ctx context.Context, serviceName, method string, args ...any) (*envelope.Response, error) {
	if args == nil {
		args = []any{}
	}
	id := uuid.NewString()
	request := &envelope.Request{
		ID:      id,
		Channel: c.channel,
		Service: serviceName,
		Method:  method,
		Args:    args,
	}
	data, err := c.codec.Encode(request)
	if err != nil {
		return nil, fmt.Errorf("encoding %s.%s request: %w", serviceName, method, err)
	}

	reply := make(chan *envelope.Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	messageType := websocket.MessageText
	if c.codec == envelope.CBOR {
		messageType = websocket.MessageBinary
	}
	if err := c.ws.Write(ctx, messageType, data); err != nil {
		return nil, fmt.Errorf("sending %s.%s: %w", serviceName, method, err)
	}

	select {
	case response := <-reply:
		return response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closeErr()
	}
}

// Invoke calls serviceName.method and decodes the response value into
// result, which may be nil to discard it. An error response is
// returned as a *CallError.
func (c *Client) Invoke(ctx context.Context, result any, serviceName, method string, args ...any) error {
	response, err := c.Call(ctx, serviceName, method, args...)
	if err != nil {
		return err
	}
	if response.Failed() {
		return &CallError{Service: serviceName, Method: method, Message: response.ErrorMessage()}
	}
	if result == nil {
		return nil
	}
	// Round-trip through the connection's codec to convert the
	// generic decoded value into the caller's type.
	data, err := c.codec.Encode(response.Response)
	if err != nil {
		return fmt.Errorf("re-encoding %s.%s response: %w", serviceName, method, err)
	}
	if err := c.codec.Decode(data, result); err != nil {
		return fmt.Errorf("decoding %s.%s response: %w", serviceName, method, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.notifications)
	defer close(c.done)
	for {
		messageType, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.fail(err)
			return
		}
		codec := envelope.Codec(envelope.JSON)
		if messageType == websocket.MessageBinary {
			codec = envelope.CBOR
		}

		var response envelope.Response
		if err := codec.Decode(data, &response); err == nil && response.ID != nil {
			c.mu.Lock()
			reply, ok := c.pending[fmt.Sprint(response.ID)]
			c.mu.Unlock()
			if ok {
				select {
				case reply <- &response:
				default:
				}
				continue
			}
		}

		select {
		case c.notifications <- data:
		default:
		}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClientClosed, err)
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrClientClosed
	}
	return c.err
}

// Close performs the close handshake and waits for the read loop to
// finish.
func (c *Client) Close() error {
	c.fail(ErrClientClosed)
	err := c.ws.Close(websocket.StatusNormalClosure, "")
	<-c.done
	if err != nil && !netutil.IsExpectedCloseError(err) {
		return err
	}
	return nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"fmt"
)

// MessageInvalidRequest is the error text for payloads that fail to
// parse or validate.
const MessageInvalidRequest = "Invalid request"

var (
	// ErrMalformedPayload reports a payload that is not a decodable
	// request object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidRequest reports a decoded request that lacks a
	// channel, service, or method.
	ErrInvalidRequest = errors.New("invalid request")
)

// Request is an inbound call.
type Request struct {
	// ID is the caller's correlation token, echoed verbatim. Optional.
	ID      any    `json:"id,omitempty"`
	Channel string `json:"channel"`
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

// Validate reports the first missing required field, wrapped in
// ErrInvalidRequest.
func (r *Request) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	case r.Channel == "":
		return fmt.Errorf("%w: missing channel", ErrInvalidRequest)
	case r.Service == "":
		return fmt.Errorf("%w: missing service", ErrInvalidRequest)
	case r.Method == "":
		return fmt.Errorf("%w: missing method", ErrInvalidRequest)
	}
	return nil
}

// Valid reports whether Validate succeeds.
func (r *Request) Valid() bool {
	return r.Validate() == nil
}

// Target returns "channel.service", the form used in not-found errors.
func (r *Request) Target() string {
	return r.Channel + "." + r.Service
}

// Response is the reply to exactly one inbound payload.
type Response struct {
	ID       any     `json:"id,omitempty"`
	Response any     `json:"response"`
	Error    *string `json:"error"`
	Request  any     `json:"request"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Error != nil
}

// ErrorMessage returns the error text, or "" for a successful response.
func (r *Response) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Success builds the response for a completed call.
func Success(request *Request, result any) *Response {
	return &Response{
		ID:       request.ID,
		Response: result,
		Request:  request,
	}
}

// Failure builds an error response for a request that was parsed.
func Failure(request *Request, message string) *Response {
	return &Response{
		ID:      request.ID,
		Error:   &message,
		Request: request,
	}
}

// Rejected builds the error response for a payload that could not be
// parsed. The id is absent and request carries the raw payload as the
// codec echoes it.
func Rejected(codec Codec, raw []byte, message string) *Response {
	return &Response{
		Error:   &message,
		Request: codec.Echo(raw),
	}
}

// ServiceNotFound returns the error text for an unregistered service.
func ServiceNotFound(channel, service string) string {
	return fmt.Sprintf(`Service "%s.%s" not found!`, channel, service)
}

// MethodNotFound returns the error text for a registered service that
// has no handler for the requested method.
func MethodNotFound(service, method string) string {
	return fmt.Sprintf(`Method "%s.%s" not found!`, service, method)
}

// Frame is one encoded message together with the codec that produced
// it. Transports use the codec to pick a frame type.
type Frame struct {
	Codec Codec
	Data  []byte
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines the request and response messages exchanged
// over switchboard connections.
//
// A request names a channel, a service, and a method, and carries an
// ordered list of arguments plus an optional correlation id:
//
//	{"id": 1, "channel": "[/]socket", "service": "echo", "method": "ping", "args": ["hello"]}
//
// The response echoes the id and the original request. Exactly one of
// response and error is meaningful; both keys are always present:
//
//	{"id": 1, "response": "hello", "error": null, "request": {...}}
//
// When a payload cannot be parsed at all, the response has no id and
// its request field carries the raw payload so the client can tell
// which message was rejected.
//
// Arguments and results are opaque to this package. The JSON codec
// decodes numbers as json.Number so that integers round-trip exactly;
// the CBOR codec decodes maps as map[string]any. Struct tags are json
// tags, which the CBOR codec honors as well.
package envelope

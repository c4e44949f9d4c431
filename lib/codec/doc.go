// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by switchboard
// packages that speak the binary envelope format.
//
// Switchboard clients normally exchange JSON text frames. Clients that
// prefer a compact encoding send CBOR in binary WebSocket frames
// instead, and the gateway answers in kind. Both directions go through
// the modes configured here so that every package encodes envelopes
// identically:
//
//	data, err := codec.Marshal(response)
//	err = codec.Unmarshal(frame, &request)
//
// Decoded values whose Go type is not known in advance (envelope
// arguments, handler results) come back as map[string]any for maps,
// which keeps them interchangeable with values produced by
// encoding/json.
package codec

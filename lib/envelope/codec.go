// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bureau-foundation/switchboard/lib/codec"
)

// Codec converts envelopes to and from one wire encoding.
type Codec interface {
	// Name identifies the encoding in logs.
	Name() string

	// Decode parses a single value from raw into v. Trailing data
	// is an error.
	Decode(raw []byte, v any) error

	// Encode serializes v.
	Encode(v any) ([]byte, error)

	// Echo returns the form in which a rejected raw payload is
	// carried back in Response.Request.
	Echo(raw []byte) any
}

var (
	// JSON is the text encoding used by browser clients.
	JSON Codec = jsonCodec{}

	// CBOR is the binary encoding, configured by lib/codec.
	CBOR Codec = cborCodec{}
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Decode(raw []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}

func (jsonCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Echo(raw []byte) any { return string(raw) }

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Decode(raw []byte, v any) error {
	if err := codec.Valid(raw); err != nil {
		return err
	}
	return codec.Unmarshal(raw, v)
}

func (cborCodec) Encode(v any) ([]byte, error) { return codec.Marshal(v) }

func (cborCodec) Echo(raw []byte) any { return raw }

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import "fmt"

// Parse decodes raw into a Request. Any decoding failure, including a
// payload that is not an object, is reported as ErrMalformedPayload.
// Parse does not validate required fields.
func Parse(c Codec, raw []byte) (*Request, error) {
	var request *Request
	if err := c.Decode(raw, &request); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, c.Name(), err)
	}
	if request == nil {
		return nil, fmt.Errorf("%w: %s: null payload", ErrMalformedPayload, c.Name())
	}
	if request.Args == nil {
		request.Args = []any{}
	}
	return request, nil
}

// Serialize encodes response for the wire.
func Serialize(c Codec, response *Response) ([]byte, error) {
	data, err := c.Encode(response)
	if err != nil {
		return nil, fmt.Errorf("encoding %s response: %w", c.Name(), err)
	}
	return data, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/bureau-foundation/switchboard/lib/codec"
)

func TestParseJSON(t *testing.T) {
	raw := []byte(`{"id":"1","channel":"[/]socket","service":"echo","method":"ping","args":["hello",42,{"k":[1,2]}]}`)

	request, err := Parse(JSON, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if request.ID != "1" {
		t.Errorf("ID = %#v, want \"1\"", request.ID)
	}
	if request.Channel != "[/]socket" || request.Service != "echo" || request.Method != "ping" {
		t.Errorf("routing fields = %q %q %q", request.Channel, request.Service, request.Method)
	}
	if len(request.Args) != 3 {
		t.Fatalf("len(Args) = %d, want 3", len(request.Args))
	}
	if request.Args[1] != json.Number("42") {
		t.Errorf("numeric arg = %#v, want json.Number(\"42\")", request.Args[1])
	}
	if err := request.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseMissingArgsYieldsEmptySlice(t *testing.T) {
	request, err := Parse(JSON, []byte(`{"channel":"c","service":"s","method":"m"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if request.Args == nil || len(request.Args) != 0 {
		t.Errorf("Args = %#v, want empty non-nil slice", request.Args)
	}
	if request.ID != nil {
		t.Errorf("ID = %#v, want nil", request.ID)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, test := range []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"truncated", `{"channel":"c"`},
		{"array", `["echo","ping"]`},
		{"string", `"echo"`},
		{"null", `null`},
		{"wrong field type", `{"channel":"c","service":"s","method":"m","args":"x"}`},
		{"trailing data", `{"channel":"c","service":"s","method":"m"} {}`},
		{"empty", ``},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(JSON, []byte(test.raw))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedPayload", test.raw, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name    string
		request *Request
		valid   bool
	}{
		{"complete", &Request{Channel: "c", Service: "s", Method: "m"}, true},
		{"nil", nil, false},
		{"no channel", &Request{Service: "s", Method: "m"}, false},
		{"no service", &Request{Channel: "c", Method: "m"}, false},
		{"no method", &Request{Channel: "c", Service: "s"}, false},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.request.Validate()
			if test.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !test.valid && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("Validate() = %v, want ErrInvalidRequest", err)
			}
			if test.request.Valid() != test.valid {
				t.Errorf("Valid() = %v, want %v", !test.valid, test.valid)
			}
		})
	}
}

func TestSerializeSuccessKeepsNullError(t *testing.T) {
	request := &Request{ID: "1", Channel: "[/]socket", Service: "echo", Method: "ping", Args: []any{"hello"}}

	data, err := Serialize(JSON, Success(request, "hello"))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding serialized response: %v", err)
	}
	if decoded["id"] != "1" || decoded["response"] != "hello" {
		t.Errorf("response = %v", decoded)
	}
	errorValue, present := decoded["error"]
	if !present || errorValue != nil {
		t.Errorf("error key = %#v (present %v), want explicit null", errorValue, present)
	}
	echoed, ok := decoded["request"].(map[string]any)
	if !ok || echoed["service"] != "echo" || echoed["method"] != "ping" {
		t.Errorf("request echo = %#v", decoded["request"])
	}
}

func TestSerializeRejectedOmitsID(t *testing.T) {
	raw := []byte(`{oops`)
	data, err := Serialize(JSON, Rejected(JSON, raw, MessageInvalidRequest))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding serialized response: %v", err)
	}
	if _, present := decoded["id"]; present {
		t.Errorf("rejected response has id: %v", decoded["id"])
	}
	if decoded["error"] != MessageInvalidRequest {
		t.Errorf("error = %#v, want %q", decoded["error"], MessageInvalidRequest)
	}
	if response, present := decoded["response"]; !present || response != nil {
		t.Errorf("response key = %#v (present %v), want explicit null", response, present)
	}
	if decoded["request"] != "{oops" {
		t.Errorf("request = %#v, want raw payload", decoded["request"])
	}
}

func TestFailureCarriesRequest(t *testing.T) {
	request := &Request{ID: "2", Channel: "[/]socket", Service: "missing", Method: "x"}
	response := Failure(request, ServiceNotFound(request.Channel, request.Service))

	if response.ID != "2" {
		t.Errorf("ID = %#v, want \"2\"", response.ID)
	}
	if got, want := response.ErrorMessage(), `Service "[/]socket.missing" not found!`; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if !response.Failed() || response.Response != nil {
		t.Errorf("Failed() = %v, Response = %#v", response.Failed(), response.Response)
	}
	if response.Request != request {
		t.Error("response does not carry the original request")
	}
}

func TestCBORRoundTrip(t *testing.T) {
	raw, err := codec.Marshal(map[string]any{
		"id":      uint64(9),
		"channel": "[/]socket",
		"service": "echo",
		"method":  "ping",
		"args":    []any{"hello", map[string]any{"n": uint64(1)}},
	})
	if err != nil {
		t.Fatalf("codec.Marshal: %v", err)
	}

	request, err := Parse(CBOR, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if request.ID != uint64(9) || request.Service != "echo" {
		t.Errorf("request = %+v", request)
	}
	if _, ok := request.Args[1].(map[string]any); !ok {
		t.Errorf("map arg type = %T, want map[string]any", request.Args[1])
	}

	data, err := Serialize(CBOR, Success(request, request.Args[0]))
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var response Response
	if err := codec.Unmarshal(data, &response); err != nil {
		t.Fatalf("decoding CBOR response: %v", err)
	}
	if response.ID != uint64(9) || response.Response != "hello" || response.Error != nil {
		t.Errorf("response = %+v", response)
	}
}

func TestCBORMalformed(t *testing.T) {
	_, err := Parse(CBOR, []byte{0xa1, 0x63})
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Parse(truncated CBOR) error = %v, want ErrMalformedPayload", err)
	}

	rejected := Rejected(CBOR, []byte{0x01, 0x02}, MessageInvalidRequest)
	if !reflect.DeepEqual(rejected.Request, []byte{0x01, 0x02}) {
		t.Errorf("CBOR echo = %#v, want raw bytes", rejected.Request)
	}
}

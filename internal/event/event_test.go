// Where: internal/event/event_test.go
// What: Tests for the canonical event types.
// Why: Query values must keep their single/list shape on the wire.
package event

import (
	"encoding/json"
	"testing"
)

func TestQueryValueMarshalsSingleAsString(t *testing.T) {
	payload, err := json.Marshal(map[string]QueryValue{"a": SingleValue("1")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"a":"1"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestQueryValueMarshalsRepeatedAsList(t *testing.T) {
	value := SingleValue("1")
	value.Add("2")
	payload, err := json.Marshal(map[string]QueryValue{"a": value})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"a":["1","2"]}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestQueryValueUnmarshalAcceptsBothShapes(t *testing.T) {
	var decoded map[string]QueryValue
	if err := json.Unmarshal([]byte(`{"a":"x","b":["1","2"]}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["a"].IsList() || decoded["a"].String() != "x" {
		t.Fatalf("unexpected single value: %#v", decoded["a"])
	}
	if got := decoded["b"].Values(); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected list value: %#v", got)
	}
}

func TestIsNullBodyStatus(t *testing.T) {
	for _, status := range []int{101, 204, 205, 304} {
		if !IsNullBodyStatus(status) {
			t.Fatalf("expected %d to be a null-body status", status)
		}
	}
	for _, status := range []int{200, 301, 404, 500} {
		if IsNullBodyStatus(status) {
			t.Fatalf("expected %d to allow a body", status)
		}
	}
}

func TestResponseBodyBytesDecodesBase64(t *testing.T) {
	body := "aGVsbG8="
	resp := &Response{StatusCode: 200, Body: &body, IsBase64Encoded: true}
	got, err := resp.BodyBytes()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("unexpected body: %q", got)
	}
}

// Where: internal/event/event.go
// What: Canonical request/response records exchanged with the Next.js handler.
// Why: Give the converter, the stream adapter, and handlers one shared contract.
package event

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
)

// InternalEvent is the normalized form of one inbound HTTP request.
// Body is nil when the request carried none (GET/HEAD are never read).
type InternalEvent struct {
	Type          string                `json:"type"`
	Method        string                `json:"method"`
	RawPath       string                `json:"rawPath"`
	URL           string                `json:"url"`
	Body          []byte                `json:"body,omitempty"`
	Headers       map[string]string     `json:"headers"`
	Query         map[string]QueryValue `json:"query"`
	Cookies       map[string]string     `json:"cookies"`
	RemoteAddress string                `json:"remoteAddress"`
}

// InternalResult is a fully buffered handler result. Headers may carry empty
// entries; renderers drop them.
type InternalResult struct {
	StatusCode      int
	Headers         map[string][]string
	Body            io.Reader
	IsBase64Encoded bool
}

// Prelude is the response metadata committed before any body byte.
type Prelude struct {
	StatusCode int
	Cookies    []string
	Headers    map[string]string
}

// StreamCreator hands out a body sink once the status and headers are known.
// Closing the sink completes the response.
type StreamCreator interface {
	WriteHeaders(prelude Prelude) io.WriteCloser
}

// Handler renders one event. A handler either streams through the
// StreamCreator or returns a buffered result; returning neither yields the
// fallback response.
type Handler interface {
	Handle(ctx context.Context, ev *InternalEvent, streams StreamCreator) (*InternalResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev *InternalEvent, streams StreamCreator) (*InternalResult, error)

func (f HandlerFunc) Handle(ctx context.Context, ev *InternalEvent, streams StreamCreator) (*InternalResult, error) {
	return f(ctx, ev, streams)
}

// Response is the single materialized response handed back to the host.
// Body is nil for statuses that must not carry one.
type Response struct {
	StatusCode      int
	Headers         map[string]string
	Cookies         []string
	Body            *string
	IsBase64Encoded bool
}

// BodyBytes returns the raw body, decoding base64 when the response is marked so.
func (r *Response) BodyBytes() ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, nil
	}
	if r.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(*r.Body)
	}
	return []byte(*r.Body), nil
}

// nullBodyStatuses never carry a body.
var nullBodyStatuses = map[int]struct{}{
	101: {},
	204: {},
	205: {},
	304: {},
}

// IsNullBodyStatus reports whether status must be sent without a body.
func IsNullBodyStatus(status int) bool {
	_, ok := nullBodyStatuses[status]
	return ok
}

// QueryValue holds one query parameter: a single value, or the ordered list
// of values when the key repeats.
type QueryValue struct {
	values []string
}

// SingleValue builds a QueryValue with one entry.
func SingleValue(value string) QueryValue {
	return QueryValue{values: []string{value}}
}

// ListValue builds a QueryValue from repeated entries.
func ListValue(values ...string) QueryValue {
	return QueryValue{values: append([]string(nil), values...)}
}

// Add appends another occurrence of the key.
func (q *QueryValue) Add(value string) {
	q.values = append(q.values, value)
}

// IsList reports whether the key occurred more than once.
func (q QueryValue) IsList() bool {
	return len(q.values) > 1
}

// String returns the first value.
func (q QueryValue) String() string {
	if len(q.values) == 0 {
		return ""
	}
	return q.values[0]
}

// Values returns every occurrence in encounter order.
func (q QueryValue) Values() []string {
	return append([]string(nil), q.values...)
}

func (q QueryValue) MarshalJSON() ([]byte, error) {
	if q.IsList() {
		return json.Marshal(q.values)
	}
	return json.Marshal(q.String())
}

func (q *QueryValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		q.values = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	q.values = list
	return nil
}

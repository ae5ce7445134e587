// Where: internal/azfunc/invoke.go
// What: Custom handler invocation payloads.
// Why: Without request forwarding the Functions host wraps every trigger in JSON.
package azfunc

import (
	"encoding/json"
	"strings"
)

// InvokeRequest is the body the host POSTs to /{function}.
type InvokeRequest struct {
	Data     map[string]json.RawMessage `json:"Data"`
	Metadata map[string]json.RawMessage `json:"Metadata"`
}

// InvocationID returns Metadata.InvocationId when present.
func (r InvokeRequest) InvocationID() string {
	for _, key := range []string{"InvocationId", "invocationId"} {
		if raw, ok := r.Metadata[key]; ok {
			var id string
			if json.Unmarshal(raw, &id) == nil && id != "" {
				return id
			}
		}
	}
	return ""
}

// HTTPTriggerRequest is Data.req for HTTP triggers.
type HTTPTriggerRequest struct {
	URL     string              `json:"Url"`
	Method  string              `json:"Method"`
	Headers map[string][]string `json:"Headers"`
	Query   map[string]string   `json:"Query"`
	Body    json.RawMessage     `json:"Body"`
}

// BodyString returns the request body. The host sends text bodies as JSON
// strings and JSON bodies as raw values.
func (r HTTPTriggerRequest) BodyString() string {
	trimmed := strings.TrimSpace(string(r.Body))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if json.Unmarshal(r.Body, &text) == nil {
			return text
		}
	}
	return string(r.Body)
}

// HTTPOutput is Outputs.res for HTTP triggers. Body is omitted for
// null-body statuses.
type HTTPOutput struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       *string           `json:"body,omitempty"`
}

// InvokeResponse is the body returned to the host.
type InvokeResponse struct {
	Outputs     map[string]any `json:"Outputs"`
	Logs        []string       `json:"Logs"`
	ReturnValue any            `json:"ReturnValue"`
}

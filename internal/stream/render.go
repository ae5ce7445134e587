// Where: internal/stream/render.go
// What: Buffered result rendering, fallback, and error responses.
// Why: Not every handler streams; failures still need a well-formed response.
package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/poruru-code/opennext-azure/internal/event"
)

// Render materializes a buffered handler result. Header names are lowercased,
// lists are joined with ", " and empty entries are dropped. Set-Cookie values
// are kept individually in Cookies and joined under "set-cookie".
func Render(result *event.InternalResult) (*event.Response, error) {
	if result == nil {
		return Fallback(), nil
	}
	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	merged := map[string][]string{}
	for name, values := range result.Headers {
		key := strings.ToLower(name)
		for _, value := range values {
			if value != "" {
				merged[key] = append(merged[key], value)
			}
		}
	}
	cookies := merged["set-cookie"]
	delete(merged, "set-cookie")
	headers := mergeHeaders(nil, cookies)
	for name, values := range merged {
		headers[name] = strings.Join(values, ", ")
	}

	resp := &event.Response{StatusCode: status, Headers: headers, Cookies: cookies}
	if event.IsNullBodyStatus(status) || result.Body == nil {
		return resp, nil
	}
	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read result body: %w", err)
	}
	body := string(raw)
	if result.IsBase64Encoded {
		body = base64.StdEncoding.EncodeToString(raw)
		resp.IsBase64Encoded = true
	}
	resp.Body = &body
	return resp, nil
}

// Fallback is returned when a handler completes without producing anything.
func Fallback() *event.Response {
	body := ""
	return &event.Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"content-type": "text/plain"},
		Body:       &body,
	}
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorResponse renders a handler failure. The stack trace is included only
// in development mode; errors that captured none get the stack at this call.
func ErrorResponse(err error, dev bool) *event.Response {
	payload := errorPayload{Error: "Internal Server Error"}
	if err != nil {
		payload.Message = err.Error()
	}
	if dev {
		payload.Stack = StackOf(err)
		if payload.Stack == "" {
			payload.Stack = StackOf(errors.New(payload.Message))
		}
	}
	raw, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		raw = []byte(`{"error":"Internal Server Error"}`)
	}
	body := string(raw)
	return &event.Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       &body,
	}
}

// PanicError carries a recovered panic and the goroutine stack at recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// StackOf returns the best available stack for err, or "" when none was captured.
func StackOf(err error) string {
	if err == nil {
		return ""
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return string(panicErr.Stack)
	}
	var traced stackTracer
	if errors.As(err, &traced) {
		return strings.TrimSpace(fmt.Sprintf("%+v", traced.StackTrace()))
	}
	return ""
}

func binaryPrelude(prelude event.Prelude) bool {
	for name, value := range prelude.Headers {
		if strings.EqualFold(name, "content-type") {
			return IsBinaryContentType(value)
		}
	}
	return false
}

// IsBinaryContentType reports whether a body of this type cannot travel as UTF-8 text.
func IsBinaryContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mediaType == "":
		return false
	case strings.HasPrefix(mediaType, "text/"):
		return false
	case mediaType == "image/svg+xml":
		return false
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "audio/"),
		strings.HasPrefix(mediaType, "video/"),
		strings.HasPrefix(mediaType, "font/"):
		return true
	}
	switch mediaType {
	case "application/octet-stream", "application/pdf", "application/zip",
		"application/gzip", "application/wasm", "application/x-protobuf":
		return true
	}
	return false
}

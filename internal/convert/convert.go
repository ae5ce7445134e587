// Where: internal/convert/convert.go
// What: Inbound HTTP request to InternalEvent conversion.
// Why: Both host modes (forwarded net/http and invocation JSON) must yield the same event.
package convert

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/event"
)

const loopbackAddress = "127.0.0.1"

// FromHTTPRequest converts a forwarded request. The body is consumed for
// methods other than GET and HEAD.
func FromHTTPRequest(r *http.Request) (*event.InternalEvent, error) {
	if r == nil || r.URL == nil {
		return nil, fmt.Errorf("request is nil")
	}
	headers := r.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if r.Host != "" && headers.Get("Host") == "" {
		headers.Set("Host", r.Host)
	}

	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil || strings.EqualFold(headers.Get("X-Forwarded-Proto"), "https") {
			u.Scheme = "https"
		}
	}

	return build(r.Method, &u, headers, func() ([]byte, error) {
		if r.Body == nil {
			return []byte{}, nil
		}
		return io.ReadAll(r.Body)
	})
}

// FromTrigger converts the request fields of an HTTP trigger invocation.
// rawURL must be absolute; a malformed URL is returned as an error.
func FromTrigger(method, rawURL string, headers map[string][]string, body string) (*event.InternalEvent, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	h := http.Header{}
	for name, values := range headers {
		for _, value := range values {
			h.Add(name, value)
		}
	}
	return build(method, u, h, func() ([]byte, error) {
		return []byte(body), nil
	})
}

func build(method string, u *url.URL, headers http.Header, readBody func() ([]byte, error)) (*event.InternalEvent, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	normalized := ExtractHeaders(headers)
	ev := &event.InternalEvent{
		Type:          "core",
		Method:        method,
		RawPath:       NormalizePath(u.Path),
		URL:           u.String(),
		Headers:       normalized,
		Query:         ExtractQuery(u.RawQuery),
		Cookies:       ParseCookies(normalized["cookie"]),
		RemoteAddress: ClientIP(normalized),
	}

	if method != http.MethodGet && method != http.MethodHead {
		body, err := readBody()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		if body == nil {
			body = []byte{}
		}
		ev.Body = body
	}
	return ev, nil
}

// NormalizePath guarantees a single leading slash and maps "" to "/".
func NormalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// ExtractQuery maps each key to its value, or to the ordered list of values
// when the key repeats. Undecodable pairs are skipped.
func ExtractQuery(rawQuery string) map[string]event.QueryValue {
	out := map[string]event.QueryValue{}
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		if existing, ok := out[key]; ok {
			existing.Add(value)
			out[key] = existing
			continue
		}
		out[key] = event.SingleValue(value)
	}
	return out
}

// ExtractHeaders lowercases names, joins repeated values with ", ", and drops
// empty values.
func ExtractHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		kept := make([]string, 0, len(values))
		for _, value := range values {
			if value != "" {
				kept = append(kept, value)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out[strings.ToLower(name)] = strings.Join(kept, ", ")
	}
	return out
}

// ParseCookies splits a Cookie header on ";" and each pair on its first "=",
// so values may themselves contain "=".
func ParseCookies(header string) map[string]string {
	out := map[string]string{}
	if header == "" {
		return out
	}
	for _, segment := range strings.Split(header, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, _ := strings.Cut(segment, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// ClientIP picks the first X-Forwarded-For hop, then X-Real-IP, then loopback.
func ClientIP(headers map[string]string) string {
	if forwarded := headers["x-forwarded-for"]; forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(headers["x-real-ip"]); realIP != "" {
		return realIP
	}
	return loopbackAddress
}

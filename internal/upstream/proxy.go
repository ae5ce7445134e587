// Where: internal/upstream/proxy.go
// What: Handler that renders events through the OpenNext Node server.
// Why: Next.js rendering stays in Node; Go owns the Functions boundary.
package upstream

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/poruru-code/opennext-azure/internal/event"
	"go.uber.org/zap"
)

var hopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"proxy-connection":    {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// Handler proxies events to an HTTP origin and streams the answer back.
type Handler struct {
	origin *url.URL
	client *http.Client
	log    *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(h *Handler) {
		h.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// New builds a Handler for origin, e.g. http://127.0.0.1:3000.
func New(origin string, opts ...Option) (*Handler, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, errors.Wrap(err, "parse upstream origin")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("upstream origin must be absolute: %q", origin)
	}
	h := &Handler{
		origin: u,
		client: &http.Client{
			Timeout: 5 * time.Minute,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
				DisableCompression:  true,
			},
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle forwards ev and streams status, headers and body to streams.
func (h *Handler) Handle(ctx context.Context, ev *event.InternalEvent, streams event.StreamCreator) (*event.InternalResult, error) {
	req, err := h.buildRequest(ctx, ev)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "upstream %s %s", ev.Method, ev.RawPath)
	}
	defer resp.Body.Close()

	sink := streams.WriteHeaders(Prelude(resp))
	if _, err := io.Copy(sink, resp.Body); err != nil {
		_ = sink.Close()
		return nil, errors.Wrapf(err, "stream upstream body for %s", ev.RawPath)
	}
	if err := sink.Close(); err != nil {
		return nil, errors.Wrap(err, "close response stream")
	}
	h.log.Debug("upstream response",
		zap.String("method", ev.Method),
		zap.String("path", ev.RawPath),
		zap.Int("status", resp.StatusCode))
	return nil, nil
}

func (h *Handler) buildRequest(ctx context.Context, ev *event.InternalEvent) (*http.Request, error) {
	target := *h.origin
	target.Path = ev.RawPath
	target.RawPath = ""
	scheme := "http"
	if original, err := url.Parse(ev.URL); err == nil {
		target.RawQuery = original.RawQuery
		if original.EscapedPath() != "" {
			target.Path = original.Path
			target.RawPath = original.RawPath
		}
		if original.Scheme != "" {
			scheme = original.Scheme
		}
	}

	var body io.Reader
	if ev.Body != nil {
		body = bytes.NewReader(ev.Body)
	}
	req, err := http.NewRequestWithContext(ctx, ev.Method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build upstream request")
	}
	for name, value := range ev.Headers {
		if _, hop := hopHeaders[name]; hop || name == "host" || name == "accept-encoding" || name == "content-length" {
			continue
		}
		req.Header.Set(name, value)
	}
	if host := ev.Headers["host"]; host != "" {
		req.Host = host
		req.Header.Set("X-Forwarded-Host", host)
	}
	if ev.RemoteAddress != "" && req.Header.Get("X-Forwarded-For") == "" {
		req.Header.Set("X-Forwarded-For", ev.RemoteAddress)
	}
	if req.Header.Get("X-Forwarded-Proto") == "" {
		req.Header.Set("X-Forwarded-Proto", scheme)
	}
	return req, nil
}

// Prelude converts upstream response metadata into a stream prelude.
// Set-Cookie values become cookies; hop-by-hop headers are dropped.
func Prelude(resp *http.Response) event.Prelude {
	prelude := event.Prelude{
		StatusCode: resp.StatusCode,
		Headers:    map[string]string{},
	}
	for name, values := range resp.Header {
		lower := strings.ToLower(name)
		if _, hop := hopHeaders[lower]; hop || lower == "content-length" {
			continue
		}
		if lower == "set-cookie" {
			prelude.Cookies = append(prelude.Cookies, values...)
			continue
		}
		kept := make([]string, 0, len(values))
		for _, value := range values {
			if value != "" {
				kept = append(kept, value)
			}
		}
		if len(kept) > 0 {
			prelude.Headers[lower] = strings.Join(kept, ", ")
		}
	}
	return prelude
}

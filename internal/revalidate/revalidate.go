// Where: internal/revalidate/revalidate.go
// What: Consumer for revalidation queue messages.
// Why: Stale ISR pages are regenerated by a HEAD request carrying the preview mode id.
package revalidate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/poruru-code/opennext-azure/internal/cache"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"go.uber.org/zap"
)

// Revalidator issues revalidation requests.
type Revalidator struct {
	client        *http.Client
	previewModeID string
	origin        *url.URL
	log           *zap.Logger
}

// Option configures a Revalidator.
type Option func(*Revalidator)

// WithOrigin sends every request to origin with the message host as Host header,
// e.g. the loopback Node server.
func WithOrigin(origin *url.URL) Option {
	return func(r *Revalidator) {
		r.origin = origin
	}
}

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(r *Revalidator) {
		r.client = client
	}
}

// New builds a Revalidator.
func New(previewModeID string, log *zap.Logger, opts ...Option) *Revalidator {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Revalidator{
		client:        &http.Client{Timeout: 30 * time.Second},
		previewModeID: previewModeID,
		log:           log.Named("revalidate"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revalidate sends HEAD {url} with x-prerender-revalidate set.
func (r *Revalidator) Revalidate(ctx context.Context, msg cache.Message) error {
	host := strings.TrimSpace(msg.MessageBody.Host)
	path := msg.MessageBody.URL
	if host == "" || path == "" {
		return fmt.Errorf("revalidation message needs host and url: %+v", msg.MessageBody)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	target := "https://" + host + path
	if r.origin != nil {
		target = strings.TrimRight(r.origin.String(), "/") + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return errors.Wrap(err, "build revalidation request")
	}
	req.Host = host
	req.Header.Set(meta.RevalidateHeader, r.previewModeID)
	req.Header.Set("x-isr", "1")

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "revalidate %s%s", host, path)
	}
	_ = resp.Body.Close()
	r.log.Info("page revalidated",
		zap.String("host", host),
		zap.String("url", path),
		zap.Int("status", resp.StatusCode),
		zap.String("dedup_id", msg.MessageDeduplicationID))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("revalidate %s%s: status %d", host, path, resp.StatusCode)
	}
	return nil
}

// Deliver adapts Revalidate for in-process queues.
func (r *Revalidator) Deliver(ctx context.Context, msg cache.Message) error {
	return r.Revalidate(ctx, msg)
}

type prerenderManifest struct {
	Preview struct {
		PreviewModeID string `json:"previewModeId"`
	} `json:"preview"`
}

// LoadPreviewModeID reads the preview mode id from {serverDir}/.next/prerender-manifest.json.
// A missing manifest yields "".
func LoadPreviewModeID(serverDir string) (string, error) {
	if serverDir == "" {
		return "", nil
	}
	payload, err := os.ReadFile(filepath.Join(serverDir, ".next", "prerender-manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read prerender manifest: %w", err)
	}
	var manifest prerenderManifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return "", fmt.Errorf("parse prerender manifest: %w", err)
	}
	return manifest.Preview.PreviewModeID, nil
}

// DecodeMessage accepts the queue trigger payload in any of the shapes the
// Functions host delivers: a JSON object, a JSON string holding JSON, or a
// JSON string holding base64 JSON.
func DecodeMessage(raw json.RawMessage) (cache.Message, error) {
	var msg cache.Message
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return msg, fmt.Errorf("empty revalidation message")
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(raw, &msg); err != nil {
			return msg, fmt.Errorf("decode revalidation message: %w", err)
		}
		return msg, validate(msg)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return msg, fmt.Errorf("decode revalidation message: %w", err)
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return msg, fmt.Errorf("decode revalidation message: not json or base64")
		}
		text = string(decoded)
	}
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		return msg, fmt.Errorf("decode revalidation message: %w", err)
	}
	return msg, validate(msg)
}

func validate(msg cache.Message) error {
	if msg.MessageBody.Host == "" || msg.MessageBody.URL == "" {
		return fmt.Errorf("revalidation message needs host and url")
	}
	return nil
}

// Where: internal/staticassets/staticassets.go
// What: Static asset short-circuit to blob storage.
// Why: Build output served from blob storage should not wake the Next.js server.
package staticassets

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/event"
)

const (
	immutablePrefix = "/_next/static/"

	// CacheControlImmutable is sent for content-hashed build output.
	CacheControlImmutable = "public, max-age=31536000, immutable"
	// CacheControlRevalidate is sent for every other static file.
	CacheControlRevalidate = "public, max-age=0, must-revalidate"
)

// Paths that must always reach the Next.js server even if they look static.
var excluded = []*regexp.Regexp{
	regexp.MustCompile(`^/_next/data/`),
	regexp.MustCompile(`^/_next/image(?:/|$)`),
	regexp.MustCompile(`^/api/`),
}

var included = []*regexp.Regexp{
	regexp.MustCompile(`^/_next/static/`),
	regexp.MustCompile(`^/favicon\.ico$`),
	regexp.MustCompile(`^/robots\.txt$`),
	regexp.MustCompile(`^/sitemap[^/]*\.xml$`),
	regexp.MustCompile(`(?i)\.(?:png|jpe?g|gif|webp|avif|svg|ico|bmp|woff2?|ttf|otf|eot|css|js|mjs|map|mp4|webm|mp3|wav|ogg|pdf|zip)$`),
}

// Matcher decides whether a path is a known static asset and builds the redirect.
type Matcher struct {
	baseURL string
}

// NewMatcher redirects matches to baseURL + path. An empty baseURL disables
// the short-circuit.
func NewMatcher(baseURL string) *Matcher {
	return &Matcher{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Enabled reports whether matches can be redirected anywhere.
func (m *Matcher) Enabled() bool {
	return m != nil && m.baseURL != ""
}

// Match reports whether path targets a static asset.
func (m *Matcher) Match(path string) bool {
	for _, re := range excluded {
		if re.MatchString(path) {
			return false
		}
	}
	for _, re := range included {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Handle returns the redirect response for static paths.
func (m *Matcher) Handle(ev *event.InternalEvent) (*event.Response, bool) {
	if !m.Enabled() || ev == nil {
		return nil, false
	}
	if ev.Method != http.MethodGet && ev.Method != http.MethodHead {
		return nil, false
	}
	if !m.Match(ev.RawPath) {
		return nil, false
	}
	return m.Redirect(ev.RawPath), true
}

// Redirect builds the 301 to the blob URL for path.
func (m *Matcher) Redirect(path string) *event.Response {
	return &event.Response{
		StatusCode: http.StatusMovedPermanently,
		Headers: map[string]string{
			"location":      m.baseURL + path,
			"cache-control": CacheControl(path),
		},
	}
}

// CacheControl returns the directive for a static path.
func CacheControl(path string) string {
	if strings.HasPrefix(path, immutablePrefix) {
		return CacheControlImmutable
	}
	return CacheControlRevalidate
}

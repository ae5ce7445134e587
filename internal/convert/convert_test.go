// Where: internal/convert/convert_test.go
// What: Tests for request conversion.
// Why: Path, query, cookie, and body handling feed every rendered page.
package convert

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":       "/",
		"/":      "/",
		"x":      "/x",
		"/x":     "/x",
		"a/b/c":  "/a/b/c",
		"/a/b/c": "/a/b/c",
	}
	for input, want := range cases {
		if got := NormalizePath(input); got != want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractQueryAccumulatesRepeatedKeys(t *testing.T) {
	query := ExtractQuery("a=1&a=2&b=x&c=")
	if !query["a"].IsList() {
		t.Fatalf("expected a to be a list")
	}
	if diff := cmp.Diff([]string{"1", "2"}, query["a"].Values()); diff != "" {
		t.Fatalf("unexpected a values (-want +got):\n%s", diff)
	}
	if query["b"].IsList() || query["b"].String() != "x" {
		t.Fatalf("expected b to be a single value, got %#v", query["b"].Values())
	}
	if _, ok := query["c"]; !ok || query["c"].String() != "" {
		t.Fatalf("expected empty c value")
	}
}

func TestExtractQuerySkipsMalformedPairs(t *testing.T) {
	query := ExtractQuery("ok=1&bad=%zz&next=2")
	if _, ok := query["bad"]; ok {
		t.Fatalf("expected malformed pair to be skipped")
	}
	if query["ok"].String() != "1" || query["next"].String() != "2" {
		t.Fatalf("unexpected query: %#v", query)
	}
}

func TestParseCookiesKeepsEqualsInValue(t *testing.T) {
	got := ParseCookies("k1=v1; k2=a=b=c")
	want := map[string]string{"k1": "v1", "k2": "a=b=c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected cookies (-want +got):\n%s", diff)
	}
}

func TestParseCookiesIgnoresEmptySegments(t *testing.T) {
	got := ParseCookies(";  ; token=abc==;flag")
	want := map[string]string{"token": "abc==", "flag": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected cookies (-want +got):\n%s", diff)
	}
}

func TestExtractHeadersLowercasesAndDropsEmpty(t *testing.T) {
	headers := http.Header{}
	headers["X-Custom"] = []string{"a", "b"}
	headers["X-Empty"] = []string{""}
	headers["Accept"] = []string{"text/html"}

	got := ExtractHeaders(headers)
	want := map[string]string{"x-custom": "a, b", "accept": "text/html"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected headers (-want +got):\n%s", diff)
	}
}

func TestClientIP(t *testing.T) {
	if got := ClientIP(map[string]string{"x-forwarded-for": "10.0.0.1, 10.0.0.2"}); got != "10.0.0.1" {
		t.Fatalf("unexpected forwarded ip: %s", got)
	}
	if got := ClientIP(map[string]string{"x-real-ip": "10.0.0.9"}); got != "10.0.0.9" {
		t.Fatalf("unexpected real ip: %s", got)
	}
	if got := ClientIP(map[string]string{}); got != "127.0.0.1" {
		t.Fatalf("unexpected fallback ip: %s", got)
	}
}

func TestFromHTTPRequestReadsBodyForPost(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/form?x=1", strings.NewReader("payload"))
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	ev, err := FromHTTPRequest(req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if ev.RawPath != "/api/form" {
		t.Fatalf("unexpected path: %s", ev.RawPath)
	}
	if string(ev.Body) != "payload" {
		t.Fatalf("unexpected body: %q", ev.Body)
	}
	if ev.Cookies["session"] != "abc" {
		t.Fatalf("unexpected cookies: %#v", ev.Cookies)
	}
	if ev.RemoteAddress != "203.0.113.7" {
		t.Fatalf("unexpected remote address: %s", ev.RemoteAddress)
	}
	if ev.Headers["host"] != "example.com" {
		t.Fatalf("expected host header, got %#v", ev.Headers)
	}
	if ev.URL != "http://example.com/api/form?x=1" {
		t.Fatalf("unexpected url: %s", ev.URL)
	}
}

func TestFromHTTPRequestSkipsBodyForGetAndHead(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		req := httptest.NewRequest(method, "http://example.com/", strings.NewReader("ignored"))
		ev, err := FromHTTPRequest(req)
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if ev.Body != nil {
			t.Fatalf("%s: expected no body, got %q", method, ev.Body)
		}
	}
}

func TestFromTrigger(t *testing.T) {
	ev, err := FromTrigger("put", "https://app.azurewebsites.net/items?id=1&id=2", map[string][]string{
		"Content-Type": {"application/json"},
	}, `{"a":1}`)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if ev.Method != http.MethodPut {
		t.Fatalf("unexpected method: %s", ev.Method)
	}
	if ev.RawPath != "/items" {
		t.Fatalf("unexpected path: %s", ev.RawPath)
	}
	if diff := cmp.Diff([]string{"1", "2"}, ev.Query["id"].Values()); diff != "" {
		t.Fatalf("unexpected query (-want +got):\n%s", diff)
	}
	if ev.Headers["content-type"] != "application/json" {
		t.Fatalf("unexpected headers: %#v", ev.Headers)
	}
	if string(ev.Body) != `{"a":1}` {
		t.Fatalf("unexpected body: %q", ev.Body)
	}
}

func TestFromTriggerRejectsMalformedURL(t *testing.T) {
	if _, err := FromTrigger("GET", "http://[::1", nil, ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

// Where: internal/cache/azure/azure_test.go
// What: Tests for the Azure Storage cache stores.
// Why: Key escaping and error mapping decide whether cache reads degrade cleanly.
package azure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/go-cmp/cmp"
	"github.com/poruru-code/opennext-azure/internal/cache"
)

const emulatorKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

func TestEscapeKeyRoundTrip(t *testing.T) {
	cases := map[string]string{
		"b1/posts":        "b1%2Fposts",
		"b1//blog?x=1#h":  "b1%2F%2Fblog%3Fx=1%23h",
		`a\b`:             "a%5Cb",
		"100%":            "100%25",
		"plain-key_value": "plain-key_value",
	}
	for input, want := range cases {
		got := EscapeKey(input)
		if got != want {
			t.Fatalf("EscapeKey(%q) = %q, want %q", input, got, want)
		}
		if back := UnescapeKey(got); back != input {
			t.Fatalf("UnescapeKey(%q) = %q, want %q", got, back, input)
		}
	}
}

func TestEntityRoundTrip(t *testing.T) {
	item := cache.TagItem{Tag: "b1/posts", Path: "b1//blog", RevalidatedAt: 1700000000000}
	payload, err := encodeEntity(item)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if raw["PartitionKey"] != "b1%2Fposts" || raw["RowKey"] != "b1%2F%2Fblog" {
		t.Fatalf("unexpected keys: %v", raw)
	}
	decoded, err := decodeEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(item, decoded); diff != "" {
		t.Fatalf("entity mismatch (-want +got):\n%s", diff)
	}
}

func TestQuoteFilter(t *testing.T) {
	if got := quoteFilter("it's"); got != "'it''s'" {
		t.Fatalf("unexpected filter literal: %s", got)
	}
}

func TestEncodeMessage(t *testing.T) {
	content, err := EncodeMessage(cache.NewMessage("example.com", "/blog", 1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if !strings.Contains(string(decoded), `"MessageBody":{"host":"example.com","url":"/blog"}`) {
		t.Fatalf("unexpected payload: %s", decoded)
	}
}

func newBlobStore(t *testing.T, handler http.HandlerFunc) *BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	conn := "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" + emulatorKey +
		";BlobEndpoint=" + server.URL + "/devstoreaccount1;"
	client, err := azblob.NewClientFromConnectionString(conn, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewBlobStore(client, "cache")
}

func TestBlobStoreMapsNotFound(t *testing.T) {
	store := newBlobStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ms-error-code", "BlobNotFound")
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := store.GetObject(context.Background(), "b1/index.cache"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlobStoreGetObject(t *testing.T) {
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := newBlobStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasSuffix(r.URL.Path, "/cache/b1/index.cache") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.Header().Set("Content-Length", "2")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	obj, err := store.GetObject(context.Background(), "b1/index.cache")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(obj.Body) != "{}" || obj.ContentType != "application/json" || !obj.LastModified.Equal(modified) {
		t.Fatalf("unexpected object: %#v", obj)
	}
}

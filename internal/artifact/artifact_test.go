package artifact

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/go-cmp/cmp"
	"github.com/poruru-code/opennext-azure/internal/staticassets"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func setupProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	bundle := filepath.Join(dir, ".open-next", "server-functions", "default")
	writeTestFile(t, filepath.Join(bundle, "index.mjs"), "export {}")
	writeTestFile(t, filepath.Join(bundle, ".next", "BUILD_ID"), "build-42\n")
	writeTestFile(t, filepath.Join(dir, ".open-next", "assets", "_next", "static", "chunk.js"), "js")
	writeTestFile(t, filepath.Join(dir, ".open-next", "assets", "favicon.ico"), "ico")
	handler := filepath.Join(dir, "bin", "handler")
	writeTestFile(t, handler, "#!/bin/sh")
	return dir, handler
}

func TestAssembleWritesFunctionPackage(t *testing.T) {
	dir, handler := setupProject(t)
	layout, err := Assemble(Options{ProjectDir: dir, HandlerPath: handler, Forward: true, Queue: "revalidation"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if layout.BuildID != "build-42" {
		t.Fatalf("unexpected build id: %q", layout.BuildID)
	}
	if layout.AssetsDir != filepath.Join(dir, ".open-next", "assets") {
		t.Fatalf("unexpected assets dir: %s", layout.AssetsDir)
	}
	for _, rel := range []string{
		"host.json",
		"server/function.json",
		"root/function.json",
		"opennext_revalidate/function.json",
		"handler",
		"app/index.mjs",
		"app/.next/BUILD_ID",
	} {
		if _, err := os.Stat(filepath.Join(layout.FunctionDir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
	}
	info, err := os.Stat(filepath.Join(layout.FunctionDir, "handler"))
	if err != nil {
		t.Fatalf("stat handler: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("handler must be executable, mode %v", info.Mode())
	}
}

func TestAssembleRequiresBundle(t *testing.T) {
	dir := t.TempDir()
	_, err := Assemble(Options{ProjectDir: dir, HandlerPath: "handler", Queue: "q"})
	if !errors.Is(err, ErrMissingBundle) {
		t.Fatalf("expected ErrMissingBundle, got %v", err)
	}
}

func TestZipKeepsRelativeNamesAndModes(t *testing.T) {
	dir, handler := setupProject(t)
	layout, err := Assemble(Options{ProjectDir: dir, HandlerPath: handler, Queue: "revalidation"})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	dest := filepath.Join(dir, ".azure", "function.zip")
	if err := Zip(layout.FunctionDir, dest); err != nil {
		t.Fatalf("zip: %v", err)
	}
	reader, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer reader.Close()

	names := map[string]os.FileMode{}
	for _, f := range reader.File {
		names[f.Name] = f.Mode()
	}
	if _, ok := names["server/function.json"]; !ok {
		t.Fatalf("zip missing server/function.json: %v", names)
	}
	if mode, ok := names["handler"]; !ok || mode.Perm()&0o100 == 0 {
		t.Fatalf("handler missing or not executable: %v", mode)
	}
}

type fakeUploader struct {
	mu      sync.Mutex
	headers map[string]string
	fail    string
}

func (f *fakeUploader) UploadBuffer(_ context.Context, _ string, name string, _ []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.fail {
		return azblob.UploadBufferResponse{}, errors.New("upload failed")
	}
	f.headers[name] = *o.HTTPHeaders.BlobCacheControl
	return azblob.UploadBufferResponse{}, nil
}

func TestUploadAssetsSetsCacheControl(t *testing.T) {
	dir, _ := setupProject(t)
	up := &fakeUploader{headers: map[string]string{}}
	count, err := UploadAssets(context.Background(), up, "assets", filepath.Join(dir, ".open-next", "assets"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 uploads, got %d", count)
	}
	want := map[string]string{
		"_next/static/chunk.js": staticassets.CacheControlImmutable,
		"favicon.ico":           staticassets.CacheControlRevalidate,
	}
	if diff := cmp.Diff(want, up.headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadAssetsContinuesAfterFailure(t *testing.T) {
	dir, _ := setupProject(t)
	up := &fakeUploader{headers: map[string]string{}, fail: "favicon.ico"}
	count, err := UploadAssets(context.Background(), up, "assets", filepath.Join(dir, ".open-next", "assets"))
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	keys := make([]string, 0, len(up.headers))
	for k := range up.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if count != 1 || len(keys) != 1 || keys[0] != "_next/static/chunk.js" {
		t.Fatalf("unexpected uploads: %d %v", count, keys)
	}
}

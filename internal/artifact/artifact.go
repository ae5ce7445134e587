// Where: internal/artifact/artifact.go
// What: Assemble the Azure Functions package from OpenNext build output.
// Why: The custom handler, the Node server bundle and the trigger bindings ship as one zip.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/templates"
)

// ErrMissingBundle is returned when the OpenNext server bundle is absent.
var ErrMissingBundle = errors.New("open-next server bundle not found; run the build first")

// Layout of the OpenNext output consumed here.
const (
	ServerBundleDir = "server-functions/default"
	AssetsDir       = "assets"
	AppDir          = "app"
)

// Options drive Assemble.
type Options struct {
	ProjectDir  string
	OpenNextDir string
	OutDir      string
	HandlerPath string
	Forward     bool
	Queue       string
}

// Layout describes an assembled package.
type Layout struct {
	FunctionDir string
	ServerDir   string
	AssetsDir   string
	BuildID     string
}

// Assemble writes {OutDir}/function with host.json, one folder per function,
// the handler binary and the Node server bundle under app/.
func Assemble(opts Options) (Layout, error) {
	openNext := resolve(opts.ProjectDir, opts.OpenNextDir, meta.OpenNextDir)
	outDir := resolve(opts.ProjectDir, opts.OutDir, meta.OutputDir)
	bundle := filepath.Join(openNext, filepath.FromSlash(ServerBundleDir))
	if info, err := os.Stat(bundle); err != nil || !info.IsDir() {
		return Layout{}, fmt.Errorf("%w: %s", ErrMissingBundle, bundle)
	}
	if opts.HandlerPath == "" {
		return Layout{}, errors.New("handler binary path is required")
	}
	if opts.Queue == "" {
		return Layout{}, errors.New("revalidation queue name is required")
	}

	functionDir := filepath.Join(outDir, meta.FunctionDir)
	if err := os.RemoveAll(functionDir); err != nil {
		return Layout{}, fmt.Errorf("clean %s: %w", functionDir, err)
	}
	if err := os.MkdirAll(functionDir, 0o755); err != nil {
		return Layout{}, err
	}

	host, err := templates.RenderHostJSON(templates.HostData{Executable: meta.HandlerBinary, Forward: opts.Forward})
	if err != nil {
		return Layout{}, err
	}
	files := map[string]string{"host.json": host}

	server, err := templates.RenderHTTPFunction(templates.HTTPFunctionData{Route: "{*path}"})
	if err != nil {
		return Layout{}, err
	}
	files[filepath.Join(meta.ServerFunction, "function.json")] = server

	root, err := templates.RenderHTTPFunction(templates.HTTPFunctionData{Route: ""})
	if err != nil {
		return Layout{}, err
	}
	files[filepath.Join(meta.RootFunction, "function.json")] = root

	queue, err := templates.RenderQueueFunction(templates.QueueFunctionData{Queue: opts.Queue})
	if err != nil {
		return Layout{}, err
	}
	files[filepath.Join(meta.RevalidateFunction, "function.json")] = queue

	for name, content := range files {
		if err := writeFile(filepath.Join(functionDir, name), []byte(content), 0o644); err != nil {
			return Layout{}, err
		}
	}

	if err := copyFile(opts.HandlerPath, filepath.Join(functionDir, meta.HandlerBinary), 0o755); err != nil {
		return Layout{}, fmt.Errorf("copy handler: %w", err)
	}
	serverDir := filepath.Join(functionDir, AppDir)
	if err := CopyDir(bundle, serverDir); err != nil {
		return Layout{}, fmt.Errorf("copy server bundle: %w", err)
	}

	return Layout{
		FunctionDir: functionDir,
		ServerDir:   serverDir,
		AssetsDir:   filepath.Join(openNext, AssetsDir),
		BuildID:     ReadBuildID(bundle),
	}, nil
}

// ReadBuildID returns the trimmed .next/BUILD_ID inside a server bundle, or "".
func ReadBuildID(serverDir string) string {
	payload, err := os.ReadFile(filepath.Join(serverDir, ".next", "BUILD_ID"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(payload))
}

// CopyDir copies src into dst, following symlinks.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if d.Type()&os.ModeSymlink != 0 {
				return CopyDir(path, target)
			}
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func resolve(base, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(base, value)
}

func writeFile(path string, payload []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, mode)
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

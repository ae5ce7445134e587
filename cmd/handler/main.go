// Where: cmd/handler/main.go
// What: Azure Functions custom handler entrypoint.
// Why: The Functions host starts this binary and forwards triggers to FUNCTIONS_CUSTOMHANDLER_PORT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/poruru-code/opennext-azure/internal/azfunc"
	"github.com/poruru-code/opennext-azure/internal/backends"
	"github.com/poruru-code/opennext-azure/internal/bindings"
	"github.com/poruru-code/opennext-azure/internal/bridge"
	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/constants"
	"github.com/poruru-code/opennext-azure/internal/logging"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/revalidate"
	"github.com/poruru-code/opennext-azure/internal/upstream"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("handler stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Runtime, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CacheToken == "" {
		cfg.CacheToken = uuid.NewString()
	}

	registry := bindings.NewRegistry()
	backends.RegisterBindings(registry, cfg)
	defer func() {
		if err := registry.Reset(); err != nil {
			log.Warn("closing bindings failed", zap.Error(err))
		}
	}()

	if cfg.ProvisionCache {
		if err := backends.Provision(ctx, cfg, registry); err != nil {
			return fmt.Errorf("provision cache: %w", err)
		}
		log.Info("cache resources provisioned", zap.String("backend", string(cfg.Backend)))
	}

	origin := cfg.Origin
	var node *upstream.Process
	if cfg.ServerDir != "" {
		node = upstream.NewProcess(upstream.ProcessConfig{
			Dir:   cfg.ServerDir,
			Entry: cfg.ServerEntry,
			Port:  cfg.ServerPort,
			Env:   nodeEnv(cfg),
		}, log)
		if err := node.Start(ctx); err != nil {
			return fmt.Errorf("start node server: %w", err)
		}
		defer func() {
			if err := node.Stop(10 * time.Second); err != nil {
				log.Warn("node server stop failed", zap.Error(err))
			}
		}()
		origin = node.Origin()
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("parse origin %q: %w", origin, err)
	}
	previewID, err := revalidate.LoadPreviewModeID(cfg.ServerDir)
	if err != nil {
		log.Warn("preview mode id unavailable", zap.Error(err))
	}
	revalidator := revalidate.New(previewID, log, revalidate.WithOrigin(originURL))

	caches, err := backends.Open(ctx, cfg, registry, log, revalidator.Deliver)
	if err != nil {
		return fmt.Errorf("open caches: %w", err)
	}
	proxy, err := upstream.New(origin, upstream.WithLogger(log))
	if err != nil {
		return err
	}

	server := azfunc.New(azfunc.Options{
		Config:      cfg,
		Handler:     proxy,
		Registry:    registry,
		Bridge:      bridge.New(caches, cfg.CacheToken, log),
		Revalidator: revalidator,
		Logger:      log,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("custom handler listening",
			zap.String("addr", addr),
			zap.String("mode", string(cfg.HTTPMode)),
			zap.String("backend", string(cfg.Backend)),
			zap.String("origin", origin))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var nodeDone <-chan struct{}
	if node != nil {
		nodeDone = node.Done()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	case <-nodeDone:
		runErr = fmt.Errorf("node server exited: %w", node.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return runErr
}

// nodeEnv is the Node server environment: ours plus its port and the bridge location.
func nodeEnv(cfg config.Runtime) []string {
	env := os.Environ()
	return append(env,
		fmt.Sprintf("PORT=%d", cfg.ServerPort),
		"HOSTNAME=127.0.0.1",
		fmt.Sprintf("%s=http://127.0.0.1:%d%s", constants.EnvCacheBridge, cfg.Port, meta.CacheBridgePrefix),
		constants.EnvCacheToken+"="+cfg.CacheToken,
	)
}

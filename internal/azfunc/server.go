// Where: internal/azfunc/server.go
// What: Azure Functions custom handler HTTP server.
// Why: One process serves the Next.js pipeline, health, the revalidation trigger and the cache bridge.
package azfunc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/poruru-code/opennext-azure/internal/bindings"
	"github.com/poruru-code/opennext-azure/internal/bridge"
	"github.com/poruru-code/opennext-azure/internal/config"
	"github.com/poruru-code/opennext-azure/internal/convert"
	"github.com/poruru-code/opennext-azure/internal/event"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"github.com/poruru-code/opennext-azure/internal/revalidate"
	"github.com/poruru-code/opennext-azure/internal/staticassets"
	"github.com/poruru-code/opennext-azure/internal/stream"
	"go.uber.org/zap"
)

// Options wires a Server.
type Options struct {
	Config      config.Runtime
	Handler     event.Handler
	Registry    *bindings.Registry
	Bridge      *bridge.Server
	Revalidator *revalidate.Revalidator
	Logger      *zap.Logger
}

// Server routes Functions host traffic.
type Server struct {
	cfg         config.Runtime
	handler     event.Handler
	assets      *staticassets.Matcher
	registry    *bindings.Registry
	bridge      *bridge.Server
	revalidator *revalidate.Revalidator
	log         *zap.Logger
	newID       func() string
}

// New builds a Server.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:         opts.Config,
		handler:     opts.Handler,
		assets:      staticassets.NewMatcher(opts.Config.AssetsBaseURL()),
		registry:    opts.Registry,
		bridge:      opts.Bridge,
		revalidator: opts.Revalidator,
		log:         log,
		newID:       func() string { return uuid.NewString() },
	}
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	if s.bridge != nil {
		r.Mount(meta.CacheBridgePrefix, s.bridge.Routes())
	}
	r.Post("/"+meta.RevalidateFunction, s.serveRevalidate)

	switch s.cfg.HTTPMode {
	case config.HTTPModeInvoke:
		r.Post("/"+meta.ServerFunction, s.serveInvoke)
		r.Post("/"+meta.RootFunction, s.serveInvoke)
	default:
		r.NotFound(s.serveForward)
		r.MethodNotAllowed(s.serveForward)
	}
	return r
}

// serveForward handles enableForwardingHttpRequest traffic.
func (s *Server) serveForward(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := r.Header.Get(meta.InvocationIDHeader)
	if id == "" {
		id = s.newID()
	}
	log := s.log.With(zap.String("invocation_id", id))

	var resp *event.Response
	ev, err := convert.FromHTTPRequest(r)
	if err != nil {
		log.Error("request conversion failed", zap.Error(err))
		resp = stream.ErrorResponse(err, s.cfg.Dev)
	} else {
		resp = s.process(r.Context(), ev, log)
	}
	writeHTTP(w, resp)
	log.Info("request handled",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
}

// serveInvoke handles HTTP trigger invocations in JSON form.
func (s *Server) serveInvoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var inv InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		http.Error(w, "invalid invocation payload", http.StatusBadRequest)
		return
	}
	id := inv.InvocationID()
	if id == "" {
		id = r.Header.Get(meta.InvocationIDHeader)
	}
	if id == "" {
		id = s.newID()
	}
	log := s.log.With(zap.String("invocation_id", id))

	var req HTTPTriggerRequest
	var resp *event.Response
	if err := json.Unmarshal(inv.Data["req"], &req); err != nil {
		log.Error("http trigger payload invalid", zap.Error(err))
		resp = stream.ErrorResponse(fmt.Errorf("decode http trigger: %w", err), s.cfg.Dev)
	} else if ev, err := convert.FromTrigger(req.Method, req.URL, req.Headers, req.BodyString()); err != nil {
		log.Error("request conversion failed", zap.Error(err))
		resp = stream.ErrorResponse(err, s.cfg.Dev)
	} else {
		resp = s.process(r.Context(), ev, log)
	}
	if resp.IsBase64Encoded {
		log.Error("binary body cannot be returned in invoke mode", zap.String("url", req.URL))
		resp = stream.ErrorResponse(errBinaryInvokeBody, s.cfg.Dev)
	}

	writeJSON(w, http.StatusOK, InvokeResponse{
		Outputs:     map[string]any{"res": toHTTPOutput(resp)},
		Logs:        []string{},
		ReturnValue: nil,
	})
	log.Info("invocation handled",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
}

// process runs health, the static asset short-circuit, then the handler.
func (s *Server) process(ctx context.Context, ev *event.InternalEvent, log *zap.Logger) *event.Response {
	if ev.RawPath == meta.HealthRoute {
		return s.health(ctx, log)
	}
	if resp, ok := s.assets.Handle(ev); ok {
		return resp
	}
	resp := stream.Execute(ctx, s.handler, ev, s.cfg.Dev)
	if resp.StatusCode >= http.StatusInternalServerError {
		log.Warn("handler returned server error", zap.String("path", ev.RawPath), zap.Int("status", resp.StatusCode))
	}
	return resp
}

type healthPayload struct {
	Status   string   `json:"status"`
	BuildID  string   `json:"buildId,omitempty"`
	Backend  string   `json:"backend"`
	Bindings []string `json:"bindings"`
	Error    string   `json:"error,omitempty"`
}

// health reports 200 when every binding answers, 503 otherwise.
func (s *Server) health(ctx context.Context, log *zap.Logger) *event.Response {
	payload := healthPayload{
		Status:   "ok",
		BuildID:  s.cfg.BuildID,
		Backend:  string(s.cfg.Backend),
		Bindings: []string{},
	}
	status := http.StatusOK
	if s.registry != nil {
		payload.Bindings = s.registry.Names()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.registry.Ping(pingCtx); err != nil {
			log.Warn("health check degraded", zap.Error(err))
			payload.Status = "degraded"
			if s.cfg.Dev {
				payload.Error = err.Error()
			}
			status = http.StatusServiceUnavailable
		}
	}
	body, _ := json.Marshal(payload)
	text := string(body)
	return &event.Response{
		StatusCode: status,
		Headers: map[string]string{
			"content-type":  "application/json",
			"cache-control": "no-store",
		},
		Body: &text,
	}
}

// serveRevalidate handles the queue trigger invocation.
func (s *Server) serveRevalidate(w http.ResponseWriter, r *http.Request) {
	var inv InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		http.Error(w, "invalid invocation payload", http.StatusBadRequest)
		return
	}
	id := inv.InvocationID()
	if id == "" {
		id = s.newID()
	}
	log := s.log.With(zap.String("invocation_id", id))

	msg, err := revalidate.DecodeMessage(inv.Data["msg"])
	if err != nil {
		log.Error("revalidation message rejected", zap.Error(err))
		writeJSON(w, http.StatusOK, InvokeResponse{Outputs: map[string]any{}, Logs: []string{err.Error()}})
		return
	}
	if s.revalidator == nil {
		writeJSON(w, http.StatusInternalServerError, InvokeResponse{Outputs: map[string]any{}, Logs: []string{"revalidation is not configured"}})
		return
	}
	if err := s.revalidator.Revalidate(r.Context(), msg); err != nil {
		log.Error("revalidation failed", zap.String("url", msg.MessageBody.URL), zap.Error(err))
		// A non-2xx answer makes the host retry and eventually poison the message.
		writeJSON(w, http.StatusInternalServerError, InvokeResponse{Outputs: map[string]any{}, Logs: []string{err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{
		Outputs: map[string]any{},
		Logs:    []string{"revalidated " + msg.MessageBody.Host + msg.MessageBody.URL},
	})
}

// writeHTTP emits resp with one Set-Cookie header per cookie.
func writeHTTP(w http.ResponseWriter, resp *event.Response) {
	header := w.Header()
	for name, value := range resp.Headers {
		if strings.EqualFold(name, "set-cookie") {
			continue
		}
		header.Set(name, value)
	}
	for _, cookie := range resp.Cookies {
		header.Add("Set-Cookie", cookie)
	}
	body, err := resp.BodyBytes()
	if err != nil {
		body = nil
	}
	w.WriteHeader(resp.StatusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

var errBinaryInvokeBody = errors.New("binary response body requires forward http mode")

// toHTTPOutput builds the "res" binding. The host takes body as plain text,
// so callers must not pass base64 encoded responses.
func toHTTPOutput(resp *event.Response) HTTPOutput {
	headers := make(map[string]string, len(resp.Headers))
	for name, value := range resp.Headers {
		headers[name] = value
	}
	return HTTPOutput{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

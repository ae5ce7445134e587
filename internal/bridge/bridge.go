// Where: internal/bridge/bridge.go
// What: Loopback HTTP API exposing the cache backends to the Node server.
// Why: The OpenNext cache overrides in Node reach Azure Storage through Go clients.
package bridge

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/poruru-code/opennext-azure/internal/backends"
	"github.com/poruru-code/opennext-azure/internal/cache"
	"github.com/poruru-code/opennext-azure/internal/meta"
	"go.uber.org/zap"
)

const (
	lastModifiedHeader = "x-opennext-last-modified"
	maxBodyBytes       = 32 << 20
)

// Server serves cache operations. Backend failures never surface: reads
// answer 404 and writes answer 204.
type Server struct {
	caches *backends.Caches
	token  string
	log    *zap.Logger
}

// New builds a bridge. An empty token disables authentication.
func New(caches *backends.Caches, token string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{caches: caches, token: token, log: log.Named("bridge")}
}

// Routes returns the router to mount under meta.CacheBridgePrefix.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Use(limitBody)

	r.Get("/incremental", s.getIncremental)
	r.Put("/incremental", s.putIncremental)
	r.Delete("/incremental", s.deleteIncremental)

	r.Get("/tags/by-tag", s.tagsByTag)
	r.Get("/tags/by-path", s.tagsByPath)
	r.Get("/tags/last-modified", s.tagsLastModified)
	r.Post("/tags", s.writeTags)

	r.Post("/queue", s.sendQueue)

	r.Get("/image", s.getImage)
	r.Put("/image", s.putImage)
	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := r.Header.Get(meta.CacheTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) incrementalParams(w http.ResponseWriter, r *http.Request) (string, cache.Kind, bool) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return "", "", false
	}
	kind, err := cache.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", "", false
	}
	return key, kind, true
}

func (s *Server) getIncremental(w http.ResponseWriter, r *http.Request) {
	key, kind, ok := s.incrementalParams(w, r)
	if !ok {
		return
	}
	entry, hit := s.caches.Incremental.Get(r.Context(), key, kind)
	if !hit {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if entry.LastModified != 0 {
		w.Header().Set(lastModifiedHeader, strconv.FormatInt(entry.LastModified, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Value)
}

func (s *Server) putIncremental(w http.ResponseWriter, r *http.Request) {
	key, kind, ok := s.incrementalParams(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}
	s.caches.Incremental.Set(r.Context(), key, kind, body)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteIncremental(w http.ResponseWriter, r *http.Request) {
	key, kind, ok := s.incrementalParams(w, r)
	if !ok {
		return
	}
	s.caches.Incremental.Delete(r.Context(), key, kind)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tagsByTag(w http.ResponseWriter, r *http.Request) {
	paths := s.caches.Tags.GetByTag(r.Context(), r.URL.Query().Get("tag"))
	writeJSON(w, http.StatusOK, nonNil(paths))
}

func (s *Server) tagsByPath(w http.ResponseWriter, r *http.Request) {
	tags := s.caches.Tags.GetByPath(r.Context(), r.URL.Query().Get("path"))
	writeJSON(w, http.StatusOK, nonNil(tags))
}

func (s *Server) tagsLastModified(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lastModified, err := strconv.ParseInt(query.Get("lastModified"), 10, 64)
	if err != nil {
		lastModified = 0
	}
	result := s.caches.Tags.GetLastModified(r.Context(), query.Get("path"), lastModified)
	writeJSON(w, http.StatusOK, map[string]int64{"lastModified": result})
}

func (s *Server) writeTags(w http.ResponseWriter, r *http.Request) {
	var items []cache.TagItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tag payload"})
		return
	}
	s.caches.Tags.WriteTags(r.Context(), items)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendQueue(w http.ResponseWriter, r *http.Request) {
	var msg cache.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid queue payload"})
		return
	}
	s.caches.Queue.Send(r.Context(), msg)
	w.WriteHeader(http.StatusNoContent)
}

func imageParams(w http.ResponseWriter, r *http.Request) (string, int, int, bool) {
	query := r.URL.Query()
	url := query.Get("url")
	width, werr := strconv.Atoi(query.Get("w"))
	quality, qerr := strconv.Atoi(query.Get("q"))
	if url == "" || werr != nil || qerr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url, w and q are required"})
		return "", 0, 0, false
	}
	return url, width, quality, true
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	url, width, quality, ok := imageParams(w, r)
	if !ok {
		return
	}
	obj, hit := s.caches.Images.Get(r.Context(), url, width, quality)
	if !hit {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if !obj.LastModified.IsZero() {
		w.Header().Set(lastModifiedHeader, strconv.FormatInt(obj.LastModified.UnixMilli(), 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Body)
}

func (s *Server) putImage(w http.ResponseWriter, r *http.Request) {
	url, width, quality, ok := imageParams(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}
	s.caches.Images.Set(r.Context(), url, width, quality, cache.Object{
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	})
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

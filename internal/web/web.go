// Package web is the sync edge service: a small HTTP API around the
// /dates resource, backed by a versioned file store.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"meetdays/internal/backing"
	"meetdays/internal/config"
	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

const (
	// CommitMessage is attached to every write of the backing file.
	CommitMessage = "chore: update meet-days data"

	maxBodyBytes = 1 << 20
)

// Server serves the /dates resource.
type Server struct {
	cfg     config.ServerConfig
	backing backing.Store
	debug   bool
	mux     *http.ServeMux
	metrics *metrics
}

// NewServer constructs a new Server. An empty cfg.SyncKey makes every write
// fail authorization.
func NewServer(cfg config.ServerConfig, store backing.Store, debug bool) *Server {
	s := &Server{
		cfg:     cfg,
		backing: store,
		debug:   debug,
		mux:     http.NewServeMux(),
		metrics: newMetrics(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with recovery, CORS, preflight and
// access logging applied.
func (s *Server) Handler() http.Handler {
	return s.recoverMiddleware(s.corsMiddleware(s.mux))
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/dates", s.handleDates)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.metrics.handler())
	s.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, model.ErrNotFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET,PUT,OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type,x-sync-key")
}

// corsMiddleware stamps CORS headers on every response and answers
// preflight requests before routing.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w.Header())
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns panics into a 500 JSON response and logs one line
// per request.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rec.Header().Set("X-Request-Id", reqID)

		defer func() {
			if v := recover(); v != nil {
				appLog.Error("panic while serving request", fmt.Errorf("%v", v), "request_id", reqID, "path", r.URL.Path)
				if !rec.wrote {
					setCORS(rec.Header())
					writeJSON(rec, http.StatusInternalServerError, model.ErrorResponse{Error: "Internal Error"})
				}
			}
			elapsed := time.Since(start)
			s.metrics.observe(r.Method, routeLabel(r.URL.Path), rec.status, elapsed)
			logf := appLog.Debug
			if s.debug {
				logf = appLog.Info
			}
			logf("http request", "request_id", reqID, "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", elapsed)
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// routeLabel keeps metric cardinality bounded.
func routeLabel(path string) string {
	switch path {
	case "/dates", "/health", "/metrics":
		return path
	default:
		return "other"
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg config.ServerConfig, store backing.Store, debug bool) error {
	s := NewServer(cfg, store, debug)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "debug", debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

// writeError maps err onto its status and public message.
func writeError(w http.ResponseWriter, err error) {
	status := model.KindOf(err).HTTPStatus()
	writeJSON(w, status, model.ErrorResponse{Error: model.PublicMessage(err)})
}

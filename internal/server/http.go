// File: internal/server/http.go
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
)

// Routes builds the HTTP surface: a health probe, Prometheus metrics and
// read-only views of the session and scenario state. Everything except the
// health probe sits behind bearer auth when a secret is configured.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.Server.AuthSecret != "" {
			r.Use(bearerAuth([]byte(s.cfg.Server.AuthSecret), s.log))
		}
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		r.Route("/v1", func(r chi.Router) {
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{sessionID}/console", s.handleConsoleLogs)
			r.Get("/scenarios", s.handleListScenarios)
			r.Get("/scenarios/{ref}", s.handleGetScenario)
		})
	})
	return r
}

// RunHTTP serves the HTTP listener until ctx ends, then shuts it down within
// the configured timeout. A daemon without server.http_addr returns
// immediately.
func (s *Server) RunHTTP(ctx context.Context) error {
	addr := s.cfg.Server.HTTPAddr
	if addr == "" {
		return nil
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP listener starting.", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := s.deps.Registry.List()
	s.writeJSON(w, http.StatusOK, sessionListResponse{Count: len(sessions), Sessions: sessions})
}

func (s *Server) handleConsoleLogs(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Registry.Resolve(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries := sess.ConsoleLogs(limit)
	s.writeJSON(w, http.StatusOK, consoleLogsResponse{SessionID: sess.ID(), Count: len(entries), Entries: entries})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	list := s.deps.Scenarios.List(q.Get("filter"), limit)
	s.writeJSON(w, http.StatusOK, scenarioListResponse{Count: len(list), Scenarios: list})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.deps.Scenarios.Get(chi.URLParam(r, "ref"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

// httpError is the JSON error body for the HTTP surface; it carries the same
// classified kind the MCP results do.
type httpError struct {
	Kind   schemas.ErrorKind `json:"kind"`
	Detail string            `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := schemas.Classify(err)
	s.writeJSON(w, statusFor(kind), map[string]httpError{
		"error": {Kind: kind, Detail: err.Error()},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode HTTP response.", zap.Error(err))
		http.Error(w, `{"error":{"kind":"InternalError"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		s.log.Debug("Failed to write HTTP response.", zap.Error(err))
	}
}

// statusFor maps a classified failure onto an HTTP status.
func statusFor(kind schemas.ErrorKind) int {
	switch kind {
	case schemas.KindSessionNotFound, schemas.KindScenarioNotFound:
		return http.StatusNotFound
	case schemas.KindInvalidArgument, schemas.KindInvalidSelector, schemas.KindConfirmationNeeded:
		return http.StatusBadRequest
	case schemas.KindDuplicateIdentifier, schemas.KindRecordingActive:
		return http.StatusConflict
	case schemas.KindSessionLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// logRequests is a zap-backed request log; it also feeds the request counter
// with the matched route pattern rather than the raw path.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metricHTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.log.Debug("HTTP request served.",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

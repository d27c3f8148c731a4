package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Bind string
	// RequestsPerSecond > 0 enables a global token-bucket throttle guarding
	// the agent against a misconfigured benchmark hammering it.
	RequestsPerSecond float64
	Burst             int
}

// Server is the agent's HTTP front end.
type Server struct {
	batcher    *Batcher
	router     chi.Router
	httpServer *http.Server
	limiter    *rate.Limiter
}

func NewServer(cfg ServerConfig, b *Batcher) *Server {
	s := &Server{batcher: b}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.RequestsPerSecond)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:    cfg.Bind,
		Handler: s.router,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.throttle)
	}

	r.Route("/redis", func(r chi.Router) {
		r.Get("/get", s.handleGet)
		r.Post("/set", s.handleSet)
		r.Delete("/del", s.handleDel)
		r.Get("/exists", s.handleExists)
	})
	r.Get("/health", s.handleHealth)

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("agent HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, then drains the batcher.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("agent HTTP server shutting down")
	err := s.httpServer.Shutdown(ctx)
	s.batcher.Shutdown()
	return err
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Handlers

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	val, err := s.submit(r.Context(), newRequest(opGet, key, ""))
	switch {
	case errors.Is(err, errKeyMissing):
		writeError(w, http.StatusNotFound, "key not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"value": val})
	}
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	value := r.URL.Query().Get("value")
	val, err := s.submit(r.Context(), newRequest(opSet, key, value))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": val})
}

func (s *Server) handleDel(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	val, err := s.submit(r.Context(), newRequest(opDel, key, ""))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": val})
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	key, ok := requireKey(w, r)
	if !ok {
		return
	}
	val, err := s.submit(r.Context(), newRequest(opExists, key, ""))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"exists": val})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submit queues one request and waits for its outcome or the request context.
func (s *Server) submit(ctx context.Context, req *request) (string, error) {
	s.batcher.Submit(ctx, req)
	select {
	case o := <-req.out:
		return o.val, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func requireKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key parameter")
		return "", false
	}
	return key, true
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Middleware

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

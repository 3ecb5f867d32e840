package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/httpapi/handlers"
	"github.com/perpwatch/perpwatch/internal/metrics"
)

// Config holds the server's listen address and timeouts (spec.md §6
// Configuration section).
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	CORSOrigins  []string // empty means "*" (spec.md §6: "Access-Control-Allow-Origin: *")
}

// Server is the query-surface HTTP server, grounded in the teacher's
// internal/interfaces/http.Server: mux.Router, a chained middleware stack,
// http.Server wrapping it with explicit timeouts.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *metrics.Registry
}

// New builds a Server over h, wiring every route named in spec.md §4.8/§6.
// m may be nil, in which case requests are served but not recorded as
// Prometheus metrics and /metrics is not registered.
func New(cfg Config, h *handlers.Handlers, m *metrics.Registry) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, handlers: h, metrics: m}
	s.setupRoutes()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeout,
		WriteTimeout: readTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

type requestIDKey struct{}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.jsonContentTypeMiddleware)

	h := s.handlers
	s.router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/api/latest", h.Latest).Methods(http.MethodGet)
	s.router.HandleFunc("/api/markets", h.Markets).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", h.Stats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/normalized-data", h.NormalizedData).Methods(http.MethodGet)
	s.router.HandleFunc("/api/tokens", h.Tokens).Methods(http.MethodGet)
	s.router.HandleFunc("/api/compare", h.Compare).Methods(http.MethodGet)
	s.router.HandleFunc("/api/funding/ma", h.FundingMA).Methods(http.MethodGet)
	s.router.HandleFunc("/api/funding/ma/bulk", h.FundingMABulk).Methods(http.MethodGet)
	s.router.HandleFunc("/api/arbitrage", h.Arbitrage).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", h.Status).Methods(http.MethodGet)
	s.router.HandleFunc("/api/trackers", h.Status).Methods(http.MethodGet)

	s.router.HandleFunc("/tracker/{exchange}/status", h.TrackerStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/tracker/{exchange}/debug", h.TrackerDebug).Methods(http.MethodGet)
	s.router.HandleFunc("/tracker/{exchange}/start", h.TrackerStart).Methods(http.MethodPost)
	s.router.HandleFunc("/tracker/{exchange}/stop", h.TrackerStop).Methods(http.MethodPost)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(h.NotFound)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusCapture struct {
	http.ResponseWriter
	code int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.code = code
	sc.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sc, r)

		took := time.Since(start)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		log.WithLevel(logLevelForStatus(sc.code)).
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sc.code).
			Dur("took", took).
			Msg("request")

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(sc.code)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(r.URL.Path, r.Method).Observe(took.Seconds())
		}
	})
}

func logLevelForStatus(code int) zerolog.Level {
	if code >= 500 {
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("query surface listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Package api serves stored news over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deusflow/lankanews/internal/config"
	"github.com/deusflow/lankanews/internal/logger"
	"github.com/deusflow/lankanews/internal/metrics"
	"github.com/deusflow/lankanews/internal/storage"
)

// Server is the read API over a Store.
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	store       storage.Store
	metrics     *metrics.Metrics
	recentLimit int
	log         *slog.Logger
	now         func() time.Time
}

func New(store storage.Store, cfg *config.Config, m *metrics.Metrics, log *slog.Logger) *Server {
	if m == nil {
		m = metrics.Global
	}
	s := &Server{
		router:      chi.NewRouter(),
		store:       store,
		metrics:     m,
		recentLimit: cfg.RecentLimit,
		log:         logger.OrDefault(log),
		now:         time.Now,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}
	return s
}

func (s *Server) setupMiddleware(cfg *config.Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	if len(cfg.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Get("/latest-news", s.handleLatestNews)
	s.router.Get("/news", s.handleNews)
	s.router.Get("/search", s.handleSearch)
	s.router.Get("/week", s.handleWeek)
	s.router.Get("/feature-article", s.handleFeatureArticle)
	s.router.Get("/feature_article", s.handleFeatureArticle)
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.log.Info("🌐 Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router returns the handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

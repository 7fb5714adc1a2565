// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zencalcs-assistant/internal/analysis"
	"zencalcs-assistant/internal/chat"
	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/render"
	"zencalcs-assistant/internal/report"
)

// ReportService renders reports from a conversation or from supplied data.
type ReportService interface {
	Generate(ctx context.Context, sessionID string, history []models.Message) (*report.Artifact, error)
	FromData(ctx context.Context, sessionID string, data models.ReportData) (*report.Artifact, error)
}

// WorkflowStarter starts the report process for a session, typically a
// Zeebe client.
type WorkflowStarter interface {
	StartReport(ctx context.Context, sessionID string, vars map[string]interface{}) (int64, error)
}

type Dependencies struct {
	Model    chat.Asker
	Analysis analysis.Analyzer
	Reports  ReportService
	Renderer *render.Renderer
	Sessions *chat.Registry
	// Workflows is nil when the workflow engine is disabled.
	Workflows WorkflowStarter
	// Ready reports whether backing services are reachable.
	Ready  func(ctx context.Context) error
	Logger logger.Logger
}

type Server struct {
	cfg    config.ServerConfig
	deps   Dependencies
	logger logger.Logger
	router chi.Router
	http   *http.Server
	now    func() time.Time
}

func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With(map[string]interface{}{"component": "api"}),
		now:    time.Now,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Report-Id", "X-Chart-Failures", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.MaxBodyBytes > 0 {
			r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
		}
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
		}

		r.Post("/chat", s.chat)
		r.Post("/analyze-conversation", s.analyzeConversation)
		r.Post("/report", s.report)
		r.Post("/render", s.render)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.newCalculation)
				r.Post("/messages", s.sendMessage)
				r.Post("/report", s.sessionReport)
				r.Post("/narrative", s.narrative)
				r.Post("/workflow", s.startWorkflow)
			})
		})
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Start blocks until the server stops. http.ErrServerClosed means a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server listening", map[string]interface{}{"address": s.cfg.Address})
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request served", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			})
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

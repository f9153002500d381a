// Package server exposes imports, lead automation and reports over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/config"
	"github.com/hrtaj/hrtaj-cli/internal/headers"
	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/importlog"
	"github.com/hrtaj/hrtaj-cli/internal/lead"
	"github.com/hrtaj/hrtaj-cli/internal/report"
)

// Services are the collaborators behind the routes. Runs may be nil, in
// which case imports are not recorded.
type Services struct {
	Importer *importer.Importer
	Runs     *importlog.Log
	Leads    *lead.Service
	Reports  *report.Service
	Headers  *headers.Table
}

// Server routes HTTP requests to Services.
type Server struct {
	cfg *config.Config
	svc Services
}

// New creates a Server. A nil Headers uses the built-in alias table.
func New(cfg *config.Config, svc Services) *Server {
	if svc.Headers == nil {
		svc.Headers = headers.Default()
	}
	return &Server{cfg: cfg, svc: svc}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.health)

	r.Route("/v1/import", func(r chi.Router) {
		r.Use(s.requireKey("Import", s.cfg.Auth.ImportKey))
		r.Post("/resale", s.importResale)
		r.Post("/projects", s.importProjects)
		r.Get("/sample-template", s.sampleTemplate)
		r.Get("/mapping", s.mapping)
	})

	r.Route("/v1/leads", func(r chi.Router) {
		r.Use(s.requireKey("Leads", s.cfg.Auth.LeadsKey))
		r.Post("/score", s.scoreLead)
		r.Post("/route", s.routeLead)
		r.Get("/sla", s.slaBreached)
	})

	r.Route("/v1/reports", func(r chi.Router) {
		r.Use(s.requireKey("Admin", s.cfg.Auth.AdminKey))
		r.Get("/daily", s.dailyReport)
		r.Get("/pipeline", s.pipelineReport)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Package api provides the HTTP API for the campaign media tree.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mediatree/mediatree-server/internal/media/files"
	"github.com/mediatree/mediatree-server/internal/ratelimit"
	"github.com/mediatree/mediatree-server/internal/service"
	"github.com/mediatree/mediatree-server/internal/sse"
	"github.com/mediatree/mediatree-server/internal/validation"
)

// Config tunes the HTTP layer.
type Config struct {
	Version             string
	AllowedOrigins      []string
	MaxUploadBytes      int64
	UploadRatePerMinute int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	campaign      *service.CampaignService
	media         *files.Store
	sseManager    *sse.Manager
	sseHandler    *sse.Handler
	uploadLimiter *ratelimit.KeyedRateLimiter
	validator     *validation.Validator
	router        *chi.Mux
	api           huma.API
	cfg           Config
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(campaign *service.CampaignService, media *files.Store, sseManager *sse.Manager, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = MaxUploadSize
	}
	if cfg.UploadRatePerMinute <= 0 {
		cfg.UploadRatePerMinute = DefaultUploadRatePerMinute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		campaign:      campaign,
		media:         media,
		sseManager:    sseManager,
		uploadLimiter: ratelimit.PerMinute(cfg.UploadRatePerMinute),
		validator:     validation.New(),
		router:        chi.NewRouter(),
		cfg:           cfg,
		logger:        logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Mediatree API", cfg.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, e.g. for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	s.uploadLimiter.Stop()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerCampaignRoutes()
	s.registerAdSetRoutes()
	s.registerQueryRoutes()
	s.registerTransferRoutes()
	s.registerBackupRoutes()
	s.registerMediaRoutes()

	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}

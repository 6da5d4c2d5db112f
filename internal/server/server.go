// Package server exposes the review workflow over HTTP. Routing uses chi
// with permissive CORS; errors map to status codes through the error code
// taxonomy.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/diagramflow/pkg/review"
	"github.com/matzehuels/diagramflow/pkg/store"
)

// Config assembles a Server.
type Config struct {
	Service *review.Service
	Store   store.Store

	// Logger receives request logs. Nil uses log.Default().
	Logger *log.Logger
}

// Server handles the HTTP surface of the review workflow.
type Server struct {
	service *review.Service
	store   store.Store
	logger  *log.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Server{
		service: cfg.Service,
		store:   cfg.Store,
		logger:  cfg.Logger,
	}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Post("/upload", s.handleUpload)
	r.Post("/convert", s.handleConvert)
	r.Post("/generate_mermaid", s.handleGenerateMermaid)
	r.Get("/review/{diagramID}", s.handleReviewPage)
	r.Put("/update_node", s.handleUpdateNode)
	r.Put("/update_edge", s.handleUpdateEdge)
	r.Put("/update_json", s.handleUpdateJSON)
	r.Post("/approve/{diagramID}", s.handleApprove)
	r.Get("/diff/{diagramID}", s.handleDiff)
	r.Get("/render/{diagramID}.svg", s.handleRenderSVG)

	return r
}

// requestLogger logs one line per request with status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

// Package api exposes the HTTP surface: the chat endpoints that bridge
// clients to the orchestrator, and CRUD for agents, tools, and prompt
// templates.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakenlabs/agentrelay/internal/orchestrator"
	"github.com/oakenlabs/agentrelay/internal/store"
)

// maxMessageLen bounds the chat message field.
const maxMessageLen = 4000

// maxCallIDLen bounds the tool-output call_id field.
const maxCallIDLen = 200

// Server wires handlers to the orchestrator and store.
type Server struct {
	store  store.Store
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewServer creates the HTTP server façade.
func NewServer(st store.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, orch: orch, logger: logger}
}

// Router builds the chi router with all routes and middleware. registry may
// be nil to skip the metrics endpoint.
func (s *Server) Router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/agent", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/stream", s.handleStream)
		r.Post("/tool-output", s.handleToolOutput)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.handleListAgents)
		r.Post("/", s.handleCreateAgent)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAgent)
			r.Put("/", s.handleUpdateAgent)
			r.Delete("/", s.handleDeleteAgent)
			r.Get("/tools", s.handleAgentTools)
			r.Post("/tools", s.handleAttachTool)
			r.Delete("/tools/{toolID}", s.handleDetachTool)
			r.Get("/sessions/{sessionID}/messages", s.handleListMessages)
		})
	})

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", s.handleListTools)
		r.Post("/", s.handleCreateTool)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTool)
			r.Put("/", s.handleUpdateTool)
			r.Delete("/", s.handleDeleteTool)
		})
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", s.handleListTemplates)
		r.Post("/", s.handleCreateTemplate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTemplate)
			r.Put("/", s.handleUpdateTemplate)
			r.Delete("/", s.handleDeleteTemplate)
		})
	})

	return r
}

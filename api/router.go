package api

import (
	"log/slog"
	"net/http"

	"github.com/devswarm/devswarm/config"
)

// NewRouter builds the full mux: public health routes, bearer-protected
// API routes, and the orchestration reverse proxy, each wrapped in the CORS
// middleware, with auth applied at the top so the exemption list in
// middleware.go is the single place that decides what is public.
func NewRouter(s *Server, cfg *config.Config, proxy http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PATCH /api/agents/{id}", s.handlePatchAgent)

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("PATCH /api/tasks/{id}/status", s.handlePatchTaskStatus)

	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleCreateMessage)

	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("POST /api/state/override", s.handleOverrideState)

	mux.HandleFunc("GET /api/costs", s.handleGetCosts)
	mux.HandleFunc("GET /api/activity", s.handleGetActivity)

	mux.HandleFunc("GET /api/ws", s.handleWS)
	mux.HandleFunc("GET /ws", s.handleWS)

	if proxy != nil {
		mux.Handle("POST /api/trigger", proxy)
		mux.Handle("POST /api/simulate/", proxy)
		mux.Handle("GET /api/mcp/tools", proxy)
	}

	return CORSMiddleware(cfg.CORS, AuthMiddleware(cfg.BearerToken, mux))
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devswarm/devswarm/delta"
	"github.com/devswarm/devswarm/hub"
	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/snapshot"
	"github.com/devswarm/devswarm/state"
	"github.com/devswarm/devswarm/store"
)

// Server holds every dependency the handlers need: the store for reads and
// mutations, the delta publisher for the bump-then-publish sequence every
// mutation follows, the hub for the WebSocket upgrade route, and the
// snapshot assembler for GET /state.
type Server struct {
	store      *store.Store
	delta      *delta.Publisher
	hub        *hub.Hub
	deadlines  hub.Deadlines
	sendBuffer int
	assembler  *snapshot.Assembler
	logger     *slog.Logger
}

// NewServer returns a Server ready to be wrapped in a Router.
func NewServer(s *store.Store, d *delta.Publisher, h *hub.Hub, deadlines hub.Deadlines, sendBuffer int, assembler *snapshot.Assembler, logger *slog.Logger) *Server {
	return &Server{store: s, delta: d, hub: h, deadlines: deadlines, sendBuffer: sendBuffer, assembler: assembler, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr classifies err via errs.KindOf and writes the matching HTTP
// status, per the error handling design's propagation policy.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindInvalidInput:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindUnauthorized:
		status = http.StatusUnauthorized
	case errs.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

// handleHealth reports store reachability. Exempt from auth.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy", "service": "devswarm", "database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok", "service": "devswarm", "database": "ok",
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handlePatchAgent applies a partial update, bumps the version, and
// publishes a delta, per the shared handler shape in §4.10: parse, validate,
// mutate, bump, publish, log, respond.
func (s *Server) handlePatchAgent(w http.ResponseWriter, r *http.Request) {
	var req state.AgentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		writeErr(w, err)
		return
	}
	id := r.PathValue("id")
	a, err := s.store.UpdateAgent(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.BumpVersion(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.delta.Publish(r.Context(), state.CategoryAgents, a.ID, a)
	if err := s.store.LogActivity(r.Context(), a.ID, "agent_updated", nil); err != nil {
		s.logger.Error("log activity", "error", err)
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), r.URL.Query().Get("agent_id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req state.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	status := state.TaskStatus(req.Status)
	if req.Status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid task status: "+req.Status)
		return
	}
	t, err := s.store.CreateTask(r.Context(), req.Title, req.Description, status, req.Priority, req.CreatedBy, req.AssignedAgents)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.BumpVersion(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.delta.Publish(r.Context(), state.CategoryTasks, t.ID, t)
	if err := s.store.LogActivity(r.Context(), req.CreatedBy, "task_created", map[string]any{"task": t.ID}); err != nil {
		s.logger.Error("log activity", "error", err)
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handlePatchTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req state.UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	next := state.TaskStatus(req.Status)
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "invalid task status: "+req.Status)
		return
	}
	id := r.PathValue("id")
	t, err := s.store.UpdateTaskStatus(r.Context(), id, next)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.BumpVersion(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.delta.Publish(r.Context(), state.CategoryTasks, t.ID, t)
	if err := s.store.LogActivity(r.Context(), "", "task_status_changed", map[string]any{"task": t.ID, "status": string(t.Status)}); err != nil {
		s.logger.Error("log activity", "error", err)
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.store.ListMessages(r.Context(), limit, r.URL.Query().Get("agent_id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req state.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	m, err := s.store.CreateMessage(r.Context(), req.FromAgent, req.ToAgent, req.Content, req.MessageType)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.BumpVersion(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.delta.Publish(r.Context(), state.CategoryMessages, m.ID, m)
	writeJSON(w, http.StatusCreated, m)
}

// handleGetState is the single special route that returns the snapshot
// body directly from the assembler rather than following the generic
// mutate-then-respond handler shape.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	su, err := s.assembler.Build(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, su)
}

func (s *Server) handleOverrideState(w http.ResponseWriter, r *http.Request) {
	var req state.OverrideStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.GlobalStatus == "" || req.DefaultRoom == "" {
		writeError(w, http.StatusBadRequest, "global_status and default_room are both required")
		return
	}
	status := state.AgentStatus(req.GlobalStatus)
	room := state.Room(req.DefaultRoom)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status: "+req.GlobalStatus)
		return
	}
	if !room.Valid() {
		writeError(w, http.StatusBadRequest, "invalid room: "+req.DefaultRoom)
		return
	}
	if err := s.store.BulkUpdateAgentStatus(r.Context(), status, room); err != nil {
		writeErr(w, err)
		return
	}
	if _, err := s.store.BumpVersion(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	s.delta.Publish(r.Context(), state.CategoryAgents, "*", map[string]string{"status": string(status), "room": string(room)})
	if req.Message != "" {
		if _, err := s.store.CreateMessage(r.Context(), "system", "", req.Message, "override"); err != nil {
			s.logger.Error("create override message", "error", err)
		}
	}
	if err := s.store.LogActivity(r.Context(), "", "state_overridden", map[string]any{"status": string(status), "room": string(room)}); err != nil {
		s.logger.Error("log activity", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetCosts(w http.ResponseWriter, r *http.Request) {
	costs, err := s.store.GetAgentCosts(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costs)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.store.GetActivityLog(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleWS upgrades the connection and hands it to the hub's connection
// handler; the handler owns the socket's lifetime from here on.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if err := hub.ServeWS(s.hub, s.deadlines, s.sendBuffer, s.logger, w, r); err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
	}
}

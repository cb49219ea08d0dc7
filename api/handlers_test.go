package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/delta"
	"github.com/devswarm/devswarm/hub"
	"github.com/devswarm/devswarm/snapshot"
	"github.com/devswarm/devswarm/state"
	"github.com/devswarm/devswarm/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store, bus.Bus) {
	t.Helper()
	f, err := os.CreateTemp("", "devswarm-api-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	s, err := store.Open(f.Name())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.NewMemoryBus(true)
	h := hub.New(logger)
	assembler := snapshot.New(s, 20)
	srv := NewServer(s, delta.New(b, logger), h, hub.DefaultDeadlines(), 16, assembler, logger)
	return srv, s, b
}

// TestCreateTask_BumpsVersionThenPublishesDelta exercises scenario S1's
// HTTP half: a successful POST /api/tasks returns 201 and the created
// task, and a DELTA_UPDATE for it is observable on agent_events before the
// response is even written, since the handler publishes synchronously.
func TestCreateTask_BumpsVersionThenPublishesDelta(t *testing.T) {
	srv, s, b := newTestServer(t)
	sub, err := b.SubscribeAgentEvents(context.Background())
	if err != nil {
		t.Fatalf("SubscribeAgentEvents: %v", err)
	}

	before, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"title": "Research multi-agent patterns", "status": "Backlog",
		"priority": 3, "createdBy": "orchestrator", "assignedAgents": []string{"researcher"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleCreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	var created state.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.Title != "Research multi-agent patterns" {
		t.Fatalf("title = %q", created.Title)
	}

	select {
	case payload := <-sub:
		var frame state.DeltaUpdate
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("unmarshal delta frame: %v", err)
		}
		if frame.Category != "tasks" || frame.ID != created.ID {
			t.Fatalf("delta frame = %+v, want category=tasks id=%s", frame, created.ID)
		}
	default:
		t.Fatal("expected a DELTA_UPDATE on agent_events")
	}

	after, err := s.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if after <= before {
		t.Fatalf("version did not strictly increase: before=%d after=%d", before, after)
	}
}

func TestCreateTask_RejectsEmptyTitle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]any{"title": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleCreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestPatchAgent_AcceptsSnakeCaseIngress covers scenario S2's wire
// contract: snake_case keys on ingress must resolve to the same patch as
// the documented camelCase.
func TestPatchAgent_AcceptsSnakeCaseIngress(t *testing.T) {
	srv, s, _ := newTestServer(t)
	if err := s.SeedAgent(context.Background(), state.Agent{ID: "orchestrator", Name: "Orchestrator", Status: state.AgentIdle, CurrentRoom: state.RoomDesks}); err != nil {
		t.Fatalf("SeedAgent: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"status": "Working", "current_room": "War Room", "current_task": "Sprint planning",
	})
	req := httptest.NewRequest(http.MethodPatch, "/api/agents/orchestrator", bytes.NewReader(body))
	req.SetPathValue("id", "orchestrator")
	rec := httptest.NewRecorder()
	srv.handlePatchAgent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var got state.Agent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Status != state.AgentWorking || got.CurrentRoom != state.RoomWarRoom || got.CurrentTask != "Sprint planning" {
		t.Fatalf("patched agent = %+v", got)
	}
}

func TestOverrideState_BulkSetsEveryAgent(t *testing.T) {
	srv, s, _ := newTestServer(t)
	for _, id := range []string{"researcher", "coder"} {
		if err := s.SeedAgent(context.Background(), state.Agent{ID: id, Name: id, Status: state.AgentIdle}); err != nil {
			t.Fatalf("SeedAgent: %v", err)
		}
	}

	body, _ := json.Marshal(map[string]string{
		"global_status": "Clocked Out", "default_room": "Lounge", "message": "EOD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/state/override", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleOverrideState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	agents, err := s.ListAgents(context.Background())
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	for id, a := range agents {
		if a.Status != state.AgentClockedOut || a.CurrentRoom != state.RoomLounge {
			t.Fatalf("agent %s = %+v, want Clocked Out in Lounge", id, a)
		}
	}
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

const agentColumns = "id, name, role, current_room, status, current_task, thought_chain, tech_stack, avatar_color, updated_at"

func scanAgent(row *sql.Row) (state.Agent, error) {
	var a state.Agent
	var room, status, techStack string
	err := row.Scan(&a.ID, &a.Name, &a.Role, &room, &status, &a.CurrentTask, &a.ThoughtChain, &techStack, &a.AvatarColor, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.CurrentRoom = state.Room(room)
	a.Status = state.AgentStatus(status)
	a.TechStack = parseStrings(techStack)
	return a, nil
}

// SeedAgent inserts an agent if it does not already exist; used at startup
// to establish the initial roster. Existing rows are left untouched.
func (s *Store) SeedAgent(ctx context.Context, a state.Agent) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, role, current_room, status, current_task, thought_chain, tech_stack, avatar_color, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.Name, a.Role, string(a.CurrentRoom), string(a.Status), a.CurrentTask, a.ThoughtChain,
		jsonStrings(a.TechStack), a.AvatarColor, a.UpdatedAt)
	if err != nil {
		return errs.Internal("seed agent", err)
	}
	return nil
}

// ListAgents returns every agent, keyed by id, in the map shape the wire
// contract expects for STATE_UPDATE frames.
func (s *Store) ListAgents(ctx context.Context) (map[string]state.Agent, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+agentColumns+" FROM agents ORDER BY id")
	if err != nil {
		return nil, errs.Internal("list agents", err)
	}
	defer rows.Close()

	out := make(map[string]state.Agent)
	for rows.Next() {
		var a state.Agent
		var room, status, techStack string
		if err := rows.Scan(&a.ID, &a.Name, &a.Role, &room, &status, &a.CurrentTask, &a.ThoughtChain, &techStack, &a.AvatarColor, &a.UpdatedAt); err != nil {
			return nil, errs.Internal("scan agent", err)
		}
		a.CurrentRoom = state.Room(room)
		a.Status = state.AgentStatus(status)
		a.TechStack = parseStrings(techStack)
		out[a.ID] = a
	}
	return out, rows.Err()
}

// ListIdleAgentIDs returns the ids of every agent whose status is Idle, used
// by the dispatcher to pick drain candidates.
func (s *Store) ListIdleAgentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM agents WHERE status = ? ORDER BY id`, string(state.AgentIdle))
	if err != nil {
		return nil, errs.Internal("list idle agents", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Internal("scan idle agent id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAgent returns a single agent by id, or a not-found error.
func (s *Store) GetAgent(ctx context.Context, id string) (state.Agent, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = ?", id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return state.Agent{}, errs.NotFound("agent " + id + " not found")
	}
	if err != nil {
		return state.Agent{}, errs.Internal("get agent", err)
	}
	return a, nil
}

// UpdateAgent applies a partial patch and persists it, returning the updated
// agent. The caller is responsible for bumping the version and publishing a
// delta afterward.
func (s *Store) UpdateAgent(ctx context.Context, id string, patch state.AgentPatch) (state.Agent, error) {
	a, err := s.GetAgent(ctx, id)
	if err != nil {
		return state.Agent{}, err
	}
	patch.Apply(&a, time.Now().UTC())

	_, err = s.db.ExecContext(ctx, `
		UPDATE agents SET current_room=?, status=?, current_task=?, thought_chain=?, updated_at=?
		WHERE id=?`,
		string(a.CurrentRoom), string(a.Status), a.CurrentTask, a.ThoughtChain, a.UpdatedAt, id)
	if err != nil {
		return state.Agent{}, errs.Internal("update agent", err)
	}
	return a, nil
}

// BulkUpdateAgentStatus sets status and current_room on every agent, used by
// POST /state/override.
func (s *Store) BulkUpdateAgentStatus(ctx context.Context, status state.AgentStatus, room state.Room) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE agents SET status=?, current_room=?, updated_at=?`,
		string(status), string(room), time.Now().UTC())
	if err != nil {
		return errs.Internal("bulk update agent status", err)
	}
	return nil
}

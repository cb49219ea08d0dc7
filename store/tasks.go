package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

const taskColumns = "id, title, description, status, priority, created_by, assigned_agents, created_at, updated_at"

func scanTaskRow(row interface{ Scan(...any) error }) (state.Task, error) {
	var t state.Task
	var status, assigned string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Priority, &t.CreatedBy, &assigned, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Status = state.TaskStatus(status)
	t.AssignedAgents = parseStrings(assigned)
	return t, nil
}

// CreateTask persists a new task, generating its id and timestamps.
// Default status is Backlog if status is empty; assigned agents are
// deduplicated into a set.
func (s *Store) CreateTask(ctx context.Context, title, description string, status state.TaskStatus, priority int, createdBy string, assignedAgents []string) (state.Task, error) {
	if title == "" {
		return state.Task{}, errs.InvalidInput("title must not be empty")
	}
	if status == "" {
		status = state.TaskBacklog
	}
	if !status.Valid() {
		return state.Task{}, errs.InvalidInput("invalid task status: " + string(status))
	}
	now := time.Now().UTC()
	t := state.Task{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    description,
		Status:         status,
		Priority:       priority,
		CreatedBy:      createdBy,
		AssignedAgents: dedupe(assignedAgents),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, created_by, assigned_agents, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Status), t.Priority, t.CreatedBy,
		jsonStrings(t.AssignedAgents), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return state.Task{}, errs.Internal("insert task", err)
	}
	return t, nil
}

// GetTask returns a single task by id, or a not-found error.
func (s *Store) GetTask(ctx context.Context, id string) (state.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return state.Task{}, errs.NotFound("task " + id + " not found")
	}
	if err != nil {
		return state.Task{}, errs.Internal("get task", err)
	}
	return t, nil
}

// ListTasks returns every task, optionally filtered to those with
// agentID among their assigned agents.
func (s *Store) ListTasks(ctx context.Context, agentID string) ([]state.Task, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY priority DESC, created_at ASC")
	if err != nil {
		return nil, errs.Internal("list tasks", err)
	}
	defer rows.Close()

	var out []state.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, errs.Internal("scan task", err)
		}
		if agentID != "" && !contains(t.AssignedAgents, agentID) {
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasksByAgentAndStatus returns tasks assigned to agentID with the given
// status, used by the dispatcher to find pending work.
func (s *Store) ListTasksByAgentAndStatus(ctx context.Context, agentID string, status state.TaskStatus) ([]state.Task, error) {
	tasks, err := s.ListTasks(ctx, agentID)
	if err != nil {
		return nil, err
	}
	var out []state.Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTaskStatus performs a validated status transition and persists it.
// Only the transitions enumerated in the task state machine are accepted;
// all others return an invalid-input error.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, next state.TaskStatus) (state.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return state.Task{}, err
	}
	if !legalTransition(t.Status, next) {
		return state.Task{}, errs.InvalidInput("illegal task transition: " + string(t.Status) + " -> " + string(next))
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, string(t.Status), t.UpdatedAt, id)
	if err != nil {
		return state.Task{}, errs.Internal("update task status", err)
	}
	return t, nil
}

// legalTransition reports whether moving from cur to next is one of the
// transitions the task state machine in the spec permits.
func legalTransition(cur, next state.TaskStatus) bool {
	switch cur {
	case state.TaskBacklog:
		return next == state.TaskInProgress
	case state.TaskInProgress:
		return next == state.TaskReview || next == state.TaskBlocked
	case state.TaskReview:
		return next == state.TaskDone || next == state.TaskBlocked
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func contains(in []string, v string) bool {
	for _, x := range in {
		if x == v {
			return true
		}
	}
	return false
}

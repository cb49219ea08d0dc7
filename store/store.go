// Package store is the durable relational store for agents, tasks, task
// assignments, messages, activity log, costs, and the singleton office_state
// row. It persists to SQLite, following the JSON-text-column pattern the
// teacher repo uses for array-valued fields that Postgres would model as
// TEXT[].
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS office_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	state_json TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT '',
	current_room  TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'Idle',
	current_task  TEXT NOT NULL DEFAULT '',
	thought_chain TEXT NOT NULL DEFAULT '',
	tech_stack    TEXT NOT NULL DEFAULT '[]',
	avatar_color  TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'Backlog',
	priority        INTEGER NOT NULL DEFAULT 0,
	created_by      TEXT NOT NULL DEFAULT '',
	assigned_agents TEXT NOT NULL DEFAULT '[]',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	from_agent   TEXT NOT NULL DEFAULT '',
	to_agent     TEXT NOT NULL DEFAULT '',
	content      TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);

CREATE TABLE IF NOT EXISTS activity_log (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity_log(created_at DESC);

CREATE TABLE IF NOT EXISTS agent_costs (
	agent_id      TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	recorded_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_costs_agent ON agent_costs(agent_id);
`

// Store is the C1 durable relational store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dsn and ensures the schema
// exists. Connections are capped at one, matching the teacher's
// task/store.go to avoid SQLITE_BUSY with SQLite's single writer.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO office_state (id, state_json, version, updated_at)
		VALUES (1, '{}', 0, ?) ON CONFLICT(id) DO NOTHING`, time.Now().UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed office_state: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the store is reachable, used by the health handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BumpVersion atomically sets version := version + 1 on the singleton
// office_state row. Idempotence is not guaranteed; callers invoke exactly
// once per mutation.
func (s *Store) BumpVersion(ctx context.Context) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE office_state SET version = version + 1, updated_at = ? WHERE id = 1`,
		time.Now().UTC())
	if err != nil {
		return 0, errs.Internal("bump version", err)
	}
	return s.Version(ctx)
}

// Version returns the current office_state version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM office_state WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, errs.Internal("read version", err)
	}
	return v, nil
}

// LogActivity appends an audit record. Append-only.
func (s *Store) LogActivity(ctx context.Context, agentID, action string, details map[string]any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return errs.Internal("marshal activity details", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, agent_id, action, details, created_at) VALUES (?,?,?,?,?)`,
		uuid.NewString(), agentID, action, string(detailsJSON), time.Now().UTC())
	if err != nil {
		return errs.Internal("log activity", err)
	}
	return nil
}

// GetActivityLog returns the most recent activity entries, newest first,
// clamped to [1, 500] with a default of 100.
func (s *Store) GetActivityLog(ctx context.Context, limit int) ([]state.ActivityEntry, error) {
	limit = clamp(limit, 1, 500, 100)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, action, details, created_at FROM activity_log
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Internal("query activity log", err)
	}
	defer rows.Close()

	var out []state.ActivityEntry
	for rows.Next() {
		var e state.ActivityEntry
		var detailsJSON string
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Action, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, errs.Internal("scan activity entry", err)
		}
		_ = json.Unmarshal([]byte(detailsJSON), &e.Details)
		out = append(out, e)
	}
	return out, rows.Err()
}

func clamp(v, lo, hi, def int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func jsonStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func parseStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

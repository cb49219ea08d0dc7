package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

// CreateMessage appends a message, generating its id and timestamp.
func (s *Store) CreateMessage(ctx context.Context, fromAgent, toAgent, content, messageType string) (state.Message, error) {
	if content == "" {
		return state.Message{}, errs.InvalidInput("content must not be empty")
	}
	m := state.Message{
		ID:          uuid.NewString(),
		FromAgent:   fromAgent,
		ToAgent:     toAgent,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, from_agent, to_agent, content, message_type, created_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.FromAgent, m.ToAgent, m.Content, m.MessageType, m.CreatedAt)
	if err != nil {
		return state.Message{}, errs.Internal("insert message", err)
	}
	return m, nil
}

// ListMessages returns the most recent messages, newest-created-first on
// read but reversed to chronological order, optionally filtered to those
// involving agentID, clamped to [1, 200] with a default of 50.
func (s *Store) ListMessages(ctx context.Context, limit int, agentID string) ([]state.Message, error) {
	limit = clamp(limit, 1, 200, 50)

	query := `SELECT id, from_agent, to_agent, content, message_type, created_at FROM messages`
	args := []any{}
	if agentID != "" {
		query += ` WHERE from_agent = ? OR to_agent = ?`
		args = append(args, agentID, agentID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal("list messages", err)
	}
	defer rows.Close()

	var out []state.Message
	for rows.Next() {
		var m state.Message
		if err := rows.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Content, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, errs.Internal("scan message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("iterate messages", err)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

package store

import (
	"context"
	"time"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

// RecordCost appends an orchestration spend observation for an agent.
func (s *Store) RecordCost(ctx context.Context, agentID string, inputTokens, outputTokens int64, costUSD float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_costs (agent_id, input_tokens, output_tokens, cost_usd, recorded_at) VALUES (?,?,?,?,?)`,
		agentID, inputTokens, outputTokens, costUSD, time.Now().UTC())
	if err != nil {
		return errs.Internal("record cost", err)
	}
	return nil
}

// GetAgentCosts returns the aggregate spend per agent, ordered by total cost
// descending.
func (s *Store) GetAgentCosts(ctx context.Context) ([]state.AgentCost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, COALESCE(SUM(input_tokens),0), COALESCE(SUM(output_tokens),0), COALESCE(SUM(cost_usd),0)
		FROM agent_costs GROUP BY agent_id ORDER BY SUM(cost_usd) DESC`)
	if err != nil {
		return nil, errs.Internal("aggregate agent costs", err)
	}
	defer rows.Close()

	var out []state.AgentCost
	for rows.Next() {
		var c state.AgentCost
		if err := rows.Scan(&c.AgentID, &c.InputTokens, &c.OutputTokens, &c.CostUSD); err != nil {
			return nil, errs.Internal("scan agent cost", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

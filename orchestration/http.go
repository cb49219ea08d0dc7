package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPOrchestrator calls the external orchestration collaborator's
// /trigger endpoint, the same surface the api package's reverse proxy
// exposes to the browser.
type HTTPOrchestrator struct {
	baseURL string
	client  *http.Client
}

// NewHTTP returns an HTTPOrchestrator targeting baseURL.
func NewHTTP(baseURL string) *HTTPOrchestrator {
	return &HTTPOrchestrator{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}
}

type triggerRequest struct {
	Goal   string `json:"goal"`
	Target string `json:"target,omitempty"`
}

type triggerResponse struct {
	Summary string `json:"summary"`
	Success bool   `json:"success"`
}

func (h *HTTPOrchestrator) Execute(ctx context.Context, goal string, target string) (Result, error) {
	body, err := json.Marshal(triggerRequest{Goal: goal, Target: target})
	if err != nil {
		return Result{}, fmt.Errorf("marshal trigger request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/trigger", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call orchestration collaborator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("orchestration collaborator returned %d", resp.StatusCode)
	}

	var out triggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode trigger response: %w", err)
	}
	return Result{Summary: out.Summary, Success: out.Success}, nil
}

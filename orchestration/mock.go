package orchestration

import (
	"context"
	"fmt"
)

// MockOrchestrator is a scripted Orchestrator, adapted from the teacher's
// provider/mock.MockProvider: it cycles through canned results instead of
// calling out to a real collaborator, for tests and for development without
// a configured external_orchestration_base_url.
type MockOrchestrator struct {
	results []Result
	idx     int
}

// NewMock returns a MockOrchestrator that cycles through the given results.
// With no results given, every call succeeds with a generic summary.
func NewMock(results ...Result) *MockOrchestrator {
	return &MockOrchestrator{results: results}
}

func (m *MockOrchestrator) Execute(_ context.Context, goal string, target string) (Result, error) {
	if len(m.results) == 0 {
		return Result{Summary: fmt.Sprintf("acknowledged goal %q for %q", goal, target), Success: true}, nil
	}
	r := m.results[m.idx%len(m.results)]
	m.idx++
	return r, nil
}

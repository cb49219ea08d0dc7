// Package orchestration defines the interface the core uses to hand work
// off to the external orchestration collaborator. The collaborator's
// reasoning is opaque to the core per spec §1: the core only observes that
// it produces a result or an error. Narrowed from the teacher's
// provider.Provider (Chat/Stream/tool-calls), which belongs to a concrete
// LLM binding that has no home in this core.
package orchestration

import "context"

// Result is what the core learns back from a unit of orchestrated work.
type Result struct {
	Summary string
	Success bool
}

// Orchestrator executes one unit of work against the external
// collaborator: a goal description and an optional target (e.g. an agent or
// task id the work concerns).
type Orchestrator interface {
	Execute(ctx context.Context, goal string, target string) (Result, error)
}

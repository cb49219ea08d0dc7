// Package state defines the DevSwarm domain entities and their wire
// representation. Field names on the wire are camelCase per the published
// contract; ingress decoding also accepts snake_case for interoperability.
package state

import "time"

// AgentStatus enumerates the legal values of Agent.Status.
type AgentStatus string

const (
	AgentIdle       AgentStatus = "Idle"
	AgentWorking    AgentStatus = "Working"
	AgentMeeting    AgentStatus = "Meeting"
	AgentError      AgentStatus = "Error"
	AgentClockedOut AgentStatus = "Clocked Out"
)

// Room enumerates the legal values of Agent.CurrentRoom.
type Room string

const (
	RoomPrivateOffice Room = "Private Office"
	RoomWarRoom       Room = "War Room"
	RoomDesks         Room = "Desks"
	RoomLounge        Room = "Lounge"
	RoomServerRoom    Room = "Server Room"
)

// TaskStatus enumerates the legal values of Task.Status and the nodes of the
// task state machine, driven by the dispatcher (see Dispatcher.drive) and by
// PATCH /tasks/{id}/status.
type TaskStatus string

const (
	TaskBacklog     TaskStatus = "Backlog"
	TaskInProgress  TaskStatus = "In Progress"
	TaskReview      TaskStatus = "Review"
	TaskDone        TaskStatus = "Done"
	TaskBlocked     TaskStatus = "Blocked"
)

// Agent is a named participant with status, room, and tasks.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CurrentRoom  Room      `json:"room"`
	Status       AgentStatus `json:"status"`
	CurrentTask  string    `json:"currentTask"`
	ThoughtChain string    `json:"thoughtChain"`
	TechStack    []string  `json:"techStack"`
	AvatarColor  string    `json:"avatarColor"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Task is a unit of assigned work moving through the status machine in
// Dispatcher.drive.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       int        `json:"priority"`
	CreatedBy      string     `json:"createdBy"`
	AssignedAgents []string   `json:"assignedAgents"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Message is an append-only entry in the agent communication log.
type Message struct {
	ID          string    `json:"id"`
	FromAgent   string    `json:"fromAgent"`
	ToAgent     string    `json:"toAgent"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ActivityEntry is an append-only audit record.
type ActivityEntry struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agentId"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AgentCost is a per-agent aggregate of orchestration spend.
type AgentCost struct {
	AgentID      string  `json:"agentId"`
	InputTokens  int64   `json:"totalInput"`
	OutputTokens int64   `json:"totalOutput"`
	CostUSD      float64 `json:"totalCost"`
}

// StateUpdate is the coherent full-state frame assembled by the snapshot
// package and delivered verbatim to WebSocket clients.
type StateUpdate struct {
	Type     string             `json:"type"`
	Agents   map[string]Agent   `json:"agents"`
	Messages []Message          `json:"messages,omitempty"`
	Tasks    []Task             `json:"tasks,omitempty"`
	Version  int64              `json:"version"`
}

// DeltaUpdate is a per-entity update frame published by the delta package
// and forwarded verbatim by the bridge.
type DeltaUpdate struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	ID       string `json:"id"`
	Data     any    `json:"data"`
}

// DeltaCategory enumerates the legal values of DeltaUpdate.Category.
type DeltaCategory string

const (
	CategoryAgents   DeltaCategory = "agents"
	CategoryTasks    DeltaCategory = "tasks"
	CategoryMessages DeltaCategory = "messages"
)

const (
	FrameStateUpdate = "STATE_UPDATE"
	FrameDeltaUpdate = "DELTA_UPDATE"
)

// AgentPatch carries a partial update to an Agent; nil fields are left
// unchanged. It has no wire form; AgentPatchRequest decodes the ingress
// body (camelCase or snake_case) and converts it with ToPatch.
type AgentPatch struct {
	CurrentRoom  *Room        `json:"-"`
	Status       *AgentStatus `json:"-"`
	CurrentTask  *string      `json:"-"`
	ThoughtChain *string      `json:"-"`
}

// Apply mutates the given agent in place with any non-nil fields, touching
// UpdatedAt. Callers must persist the result.
func (p AgentPatch) Apply(a *Agent, now time.Time) {
	if p.CurrentRoom != nil {
		a.CurrentRoom = *p.CurrentRoom
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.CurrentTask != nil {
		a.CurrentTask = *p.CurrentTask
	}
	if p.ThoughtChain != nil {
		a.ThoughtChain = *p.ThoughtChain
	}
	a.UpdatedAt = now
}

package state

import (
	"encoding/json"

	"github.com/devswarm/devswarm/internal/errs"
)

// AgentPatchRequest is the wire shape accepted by PATCH /agents/{id}. It
// accepts both camelCase and snake_case keys per spec: implementations MUST
// also accept snake_case equivalents on ingress for interoperability.
type AgentPatchRequest struct {
	CurrentRoom  *string `json:"current_room"`
	Status       *string `json:"status"`
	CurrentTask  *string `json:"current_task"`
	ThoughtChain *string `json:"thought_chain"`
}

// UnmarshalJSON accepts either camelCase or snake_case keys for every field.
func (r *AgentPatchRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	assign := func(keys ...string) *string {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				var s string
				if err := json.Unmarshal(v, &s); err == nil {
					return &s
				}
			}
		}
		return nil
	}
	r.CurrentRoom = assign("current_room", "room", "currentRoom")
	r.Status = assign("status")
	r.CurrentTask = assign("current_task", "currentTask")
	r.ThoughtChain = assign("thought_chain", "thoughtChain")
	return nil
}

// ToPatch converts the wire request into a validated AgentPatch.
func (r AgentPatchRequest) ToPatch() (AgentPatch, error) {
	var p AgentPatch
	if r.CurrentRoom != nil {
		room := Room(*r.CurrentRoom)
		if !room.Valid() {
			return p, invalidEnum("room", *r.CurrentRoom)
		}
		p.CurrentRoom = &room
	}
	if r.Status != nil {
		status := AgentStatus(*r.Status)
		if !status.Valid() {
			return p, invalidEnum("status", *r.Status)
		}
		p.Status = &status
	}
	p.CurrentTask = r.CurrentTask
	p.ThoughtChain = r.ThoughtChain
	return p, nil
}

// CreateTaskRequest is the wire shape accepted by POST /tasks.
type CreateTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       int      `json:"priority"`
	CreatedBy      string   `json:"createdBy"`
	AssignedAgents []string `json:"assignedAgents"`
}

// UnmarshalJSON additionally accepts snake_case keys.
func (r *CreateTaskRequest) UnmarshalJSON(data []byte) error {
	type alias CreateTaskRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = CreateTaskRequest(a)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if r.CreatedBy == "" {
		if v, ok := raw["created_by"]; ok {
			_ = json.Unmarshal(v, &r.CreatedBy)
		}
	}
	if len(r.AssignedAgents) == 0 {
		if v, ok := raw["assigned_agents"]; ok {
			_ = json.Unmarshal(v, &r.AssignedAgents)
		}
	}
	return nil
}

// UpdateTaskStatusRequest is the wire shape accepted by PATCH /tasks/{id}/status.
type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// CreateMessageRequest is the wire shape accepted by POST /messages.
type CreateMessageRequest struct {
	FromAgent   string `json:"fromAgent"`
	ToAgent     string `json:"toAgent"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

func (r *CreateMessageRequest) UnmarshalJSON(data []byte) error {
	type alias CreateMessageRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = CreateMessageRequest(a)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if r.FromAgent == "" {
		if v, ok := raw["from_agent"]; ok {
			_ = json.Unmarshal(v, &r.FromAgent)
		}
	}
	if r.ToAgent == "" {
		if v, ok := raw["to_agent"]; ok {
			_ = json.Unmarshal(v, &r.ToAgent)
		}
	}
	if r.MessageType == "" {
		if v, ok := raw["message_type"]; ok {
			_ = json.Unmarshal(v, &r.MessageType)
		}
	}
	return nil
}

// OverrideStateRequest is the wire shape accepted by POST /state/override.
type OverrideStateRequest struct {
	GlobalStatus string `json:"global_status"`
	DefaultRoom  string `json:"default_room"`
	Message      string `json:"message"`
}

// Valid reports whether s is one of the enumerated agent statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentIdle, AgentWorking, AgentMeeting, AgentError, AgentClockedOut:
		return true
	}
	return false
}

// Valid reports whether r is one of the enumerated rooms.
func (r Room) Valid() bool {
	switch r {
	case RoomPrivateOffice, RoomWarRoom, RoomDesks, RoomLounge, RoomServerRoom:
		return true
	}
	return false
}

// Valid reports whether s is one of the enumerated task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskBacklog, TaskInProgress, TaskReview, TaskDone, TaskBlocked:
		return true
	}
	return false
}

func invalidEnum(field, value string) error {
	return errs.InvalidInput("invalid value for " + field + ": " + value)
}

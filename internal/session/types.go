package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sender roles for history messages. Agent messages use the agent id itself
// as the sender, tool messages the string "tool".
const (
	SenderUser       = "user"
	SenderTool       = "tool"
	SenderSupervisor = "supervisor"
	SenderSystem     = "system"
)

// Message is one committed entry in a session's history. Messages are
// immutable once appended.
type Message struct {
	Sender        string `json:"sender"`
	Text          string `json:"text"`
	ToolID        string `json:"tool_id,omitempty"`
	ForAgent      string `json:"for_agent,omitempty"`
	ViaSupervisor bool   `json:"via_supervisor,omitempty"`
	Error         bool   `json:"error,omitempty"`

	// Supervisor decision annotations, set only on supervisor messages.
	RoutingDecision string `json:"routing_decision,omitempty"`
	ChosenAgent     string `json:"chosen_agent,omitempty"`
	SupervisorType  string `json:"supervisor_type,omitempty"`
	Delegation      bool   `json:"delegation,omitempty"`
}

// ToolBinding attaches one tool to a plan entry. The wire form is either a
// bare tool id string or {"tool_id": ..., "option": ...}; only knowledgebase
// carries an option (the knowledge key).
type ToolBinding struct {
	ToolID string `json:"tool_id"`
	Option string `json:"option,omitempty"`
}

func (b *ToolBinding) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		b.ToolID = id
		b.Option = ""
		return nil
	}
	type binding ToolBinding
	var full binding
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("tool binding must be a string or an object: %w", err)
	}
	*b = ToolBinding(full)
	return nil
}

// PlanEntry is one agent slot in a manual plan.
type PlanEntry struct {
	AgentID string        `json:"id"`
	Enabled bool          `json:"enabled"`
	Tools   []ToolBinding `json:"tools,omitempty"`
}

// Session is one conversation: its history, its stored plan, and the
// supervisor flag. The zero AgentSequence with SupervisorMode false means
// turns run against the server's default agent.
type Session struct {
	ID             string      `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	History        []Message   `json:"history"`
	AgentSequence  []PlanEntry `json:"agent_sequence"`
	SupervisorMode bool        `json:"supervisor_mode"`
}

// Empty reports whether the session has no messages and no enabled agents.
// Empty sessions are invisible to list() and swept by cleanup().
func (s *Session) Empty() bool {
	if len(s.History) > 0 {
		return false
	}
	for _, e := range s.AgentSequence {
		if e.Enabled {
			return false
		}
	}
	return true
}

package domain

import (
	"time"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ToolCallStatus is the outcome of one tool invocation.
type ToolCallStatus string

const (
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallError   ToolCallStatus = "error"
	ToolCallPending ToolCallStatus = "pending"
)

// ChatSession is one recorded conversation with an agent. The message and
// tool-call counts are maintained redundantly for listing and telemetry.
type ChatSession struct {
	ID             string     `json:"id"`
	AgentID        string     `json:"agent_id"`
	AgentName      string     `json:"agent_name,omitempty"`
	SessionSource  string     `json:"session_source"`
	UserIdentifier string     `json:"user_identifier,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	MessageCount   int        `json:"message_count"`
	ToolCallCount  int        `json:"tool_call_count"`
}

// IsOpen returns true while the session has not been ended.
func (s *ChatSession) IsOpen() bool {
	return s.EndedAt == nil
}

// ChatMessage is a single transcript entry within a session.
type ChatMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Thoughts  string      `json:"thoughts,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ToolCall records one invocation of an external capability made during
// assistant reasoning. MessageID is the authoritative linkage; SessionID
// is kept redundantly so session-wide queries avoid a join.
type ToolCall struct {
	ID              string         `json:"id"`
	MessageID       string         `json:"message_id"`
	SessionID       string         `json:"session_id"`
	ToolName        string         `json:"tool_name"`
	ToolInput       string         `json:"tool_input,omitempty"`
	ToolOutput      string         `json:"tool_output,omitempty"`
	ExecutionTimeMS *int64         `json:"execution_time_ms,omitempty"`
	Status          ToolCallStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

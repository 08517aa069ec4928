// Package domain contains core domain types for the agentdeck application.
package domain

import (
	"time"
)

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	StatusActive   AgentStatus = "active"
	StatusInactive AgentStatus = "inactive"
	StatusDraft    AgentStatus = "draft"
)

// Agent represents a configured AI assistant persona.
type Agent struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	SystemPrompt   string      `json:"system_prompt,omitempty"`
	Status         AgentStatus `json:"status"`
	EmbedToken     string      `json:"embed_token,omitempty"`
	AllowedDomains string      `json:"allowed_domains,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsEmbeddable returns true if the agent can be resolved through its
// public embed token. Only active agents are embeddable.
func (a *Agent) IsEmbeddable() bool {
	return a.Status == StatusActive && a.EmbedToken != ""
}

// AgentMode controls how the inference runtime drives the agent.
type AgentMode string

const (
	ModeSimple  AgentMode = "simple"
	ModeAgentic AgentMode = "agentic"
)

// Valid reports whether the mode is one of the known values.
func (m AgentMode) Valid() bool {
	return m == ModeSimple || m == ModeAgentic
}

// Fallback defaults applied when a config update omits the field.
// These replace the stored value, they do not preserve it.
const (
	DefaultAgentMode     = ModeSimple
	DefaultMaxIterations = 10
)

// LLMConfig holds per-agent model-provider settings. Exactly one config
// row exists per agent.
type LLMConfig struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	Temperature   float64   `json:"temperature"`
	MaxTokens     int       `json:"max_tokens"`
	AgentMode     AgentMode `json:"agent_mode"`
	MaxIterations int       `json:"max_iterations"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// APIKey is a stored provider credential. At most one key exists per
// (agent_id, provider) pair.
type APIKey struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Provider  string    `json:"provider"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

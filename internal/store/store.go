// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
)

// AgentPatch carries a sparse agent update. Only non-nil fields are
// written; everything else is left untouched. This is deliberately
// different from the LLM-config update, which replaces the whole row
// with caller-supplied defaults.
type AgentPatch struct {
	Name           *string             `json:"name,omitempty"`
	Description    *string             `json:"description,omitempty"`
	SystemPrompt   *string             `json:"system_prompt,omitempty"`
	Status         *domain.AgentStatus `json:"status,omitempty"`
	EmbedToken     *string             `json:"embed_token,omitempty"`
	AllowedDomains *string             `json:"allowed_domains,omitempty"`
}

// IsEmpty returns true when no field is supplied.
func (p *AgentPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.SystemPrompt == nil &&
		p.Status == nil && p.EmbedToken == nil && p.AllowedDomains == nil
}

// Repository defines the interface for persisting agents, RBAC records,
// and conversation sessions.
//
// Get* methods return (nil, nil) when the entity is absent; mutating
// methods return shared.ErrNotFound when no row matched and
// shared.ErrConflict on uniqueness violations.
type Repository interface {
	// Agents
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	GetAgentByEmbedToken(ctx context.Context, token string) (*domain.Agent, error)
	InsertAgent(ctx context.Context, agent *domain.Agent) error
	UpdateAgentFields(ctx context.Context, id string, patch AgentPatch) error
	DeleteAgent(ctx context.Context, id string) error

	// LLM config (1:1 with agent)
	GetLLMConfig(ctx context.Context, agentID string) (*domain.LLMConfig, error)
	PutLLMConfig(ctx context.Context, cfg *domain.LLMConfig) error

	// API keys
	ListAPIKeys(ctx context.Context, agentID string) ([]domain.APIKey, error)
	GetAPIKeyByProvider(ctx context.Context, agentID, provider string) (*domain.APIKey, error)
	InsertAPIKey(ctx context.Context, key *domain.APIKey) error
	UpdateAPIKeyValue(ctx context.Context, agentID, provider, apiKey string) error
	DeleteAPIKey(ctx context.Context, agentID, keyID string) error

	// RBAC
	ListRoles(ctx context.Context) ([]domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
	InsertRole(ctx context.Context, role *domain.Role, permissionIDs []string) error
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	RolePermissionIDs(ctx context.Context, roleID string) ([]string, error)
	PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error)

	// Chat sessions
	GetChatSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListChatSessions(ctx context.Context, agentID string, limit, offset int) ([]domain.ChatSession, error)
	InsertChatSession(ctx context.Context, session *domain.ChatSession) error
	EndChatSession(ctx context.Context, id string, endedAt time.Time) error
	DeleteChatSession(ctx context.Context, id string) error
	ListSessionMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
	InsertChatMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListSessionToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error)
	InsertToolCall(ctx context.Context, call *domain.ToolCall) error

	// CleanupEndedSessions removes sessions that ended before the
	// retention cutoff, cascading to their messages and tool calls.
	CleanupEndedSessions(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

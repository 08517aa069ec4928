// Package agentcfg owns agent records, per-agent LLM configuration, and
// provider credentials.
package agentcfg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/google/uuid"
)

// Service provides agent configuration operations over the repository.
type Service struct {
	repo store.Repository
}

// NewService creates an agent config service backed by the repository.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// Agent retrieves an agent by id.
func (s *Service) Agent(ctx context.Context, agentID string) (*domain.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("agent %s: %w", agentID, shared.ErrNotFound)
	}
	return agent, nil
}

// AgentByEmbedToken resolves a public embed token to its agent. Only
// active agents resolve; anything else is ErrNotFound.
func (s *Service) AgentByEmbedToken(ctx context.Context, token string) (*domain.Agent, error) {
	if token == "" {
		return nil, fmt.Errorf("embed token is required: %w", shared.ErrInvalidInput)
	}
	agent, err := s.repo.GetAgentByEmbedToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, fmt.Errorf("embed token: %w", shared.ErrNotFound)
	}
	return agent, nil
}

// UpdateAgent applies a sparse patch: only fields present in the request
// are written, everything else keeps its stored value. Returns the
// updated agent.
func (s *Service) UpdateAgent(ctx context.Context, agentID string, patch store.AgentPatch) (*domain.Agent, error) {
	if err := s.repo.UpdateAgentFields(ctx, agentID, patch); err != nil {
		return nil, err
	}
	return s.Agent(ctx, agentID)
}

// DeleteAgent removes an agent and, via store cascades, its config and
// keys.
func (s *Service) DeleteAgent(ctx context.Context, agentID string) error {
	return s.repo.DeleteAgent(ctx, agentID)
}

// ConfigUpdate carries the writable LLM config fields. Omitted
// agent_mode and max_iterations fall back to fixed defaults, not to the
// previously stored values: this is full-replace-with-defaults, not a
// sparse patch.
type ConfigUpdate struct {
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	AgentMode     string  `json:"agent_mode"`
	MaxIterations int     `json:"max_iterations"`
}

// Config retrieves the LLM config for an agent.
func (s *Service) Config(ctx context.Context, agentID string) (*domain.LLMConfig, error) {
	cfg, err := s.repo.GetLLMConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("llm config for agent %s: %w", agentID, shared.ErrNotFound)
	}
	return cfg, nil
}

// UpdateConfig replaces the agent's LLM config with the supplied fields.
func (s *Service) UpdateConfig(ctx context.Context, agentID string, req ConfigUpdate) (*domain.LLMConfig, error) {
	mode := domain.AgentMode(req.AgentMode)
	if mode == "" {
		mode = domain.DefaultAgentMode
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown agent mode %q: %w", mode, shared.ErrInvalidInput)
	}
	iterations := req.MaxIterations
	if iterations <= 0 {
		iterations = domain.DefaultMaxIterations
	}

	cfg := &domain.LLMConfig{
		ID:            uuid.NewString(),
		AgentID:       agentID,
		Provider:      req.Provider,
		Model:         req.Model,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		AgentMode:     mode,
		MaxIterations: iterations,
		UpdatedAt:     time.Now(),
	}
	if err := s.repo.PutLLMConfig(ctx, cfg); err != nil {
		return nil, err
	}

	// Re-read so the caller sees the canonical row: on the update path
	// the pre-existing row id survives the conflict clause.
	return s.Config(ctx, agentID)
}

// ListKeys returns the agent's API keys, newest first.
func (s *Service) ListKeys(ctx context.Context, agentID string) ([]domain.APIKey, error) {
	return s.repo.ListAPIKeys(ctx, agentID)
}

// UpsertKey stores a provider credential for an agent. If a key for the
// (agent, provider) pair already exists its secret is replaced in place,
// keeping the row id and created_at; otherwise a fresh row is created.
// The returned bool is true when a new row was created.
func (s *Service) UpsertKey(ctx context.Context, agentID, provider, apiKey string) (*domain.APIKey, bool, error) {
	if provider == "" || apiKey == "" {
		return nil, false, fmt.Errorf("provider and api key are required: %w", shared.ErrInvalidInput)
	}

	existing, err := s.repo.GetAPIKeyByProvider(ctx, agentID, provider)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return s.updateKey(ctx, agentID, provider, apiKey)
	}

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Provider:  provider,
		APIKey:    apiKey,
		CreatedAt: time.Now(),
	}
	err = s.repo.InsertAPIKey(ctx, key)
	if err == nil {
		return key, true, nil
	}
	// A concurrent request won the insert race; the store's uniqueness
	// constraint reports it as a conflict, which we retry as an update.
	if errors.Is(err, shared.ErrConflict) {
		return s.updateKey(ctx, agentID, provider, apiKey)
	}
	return nil, false, err
}

func (s *Service) updateKey(ctx context.Context, agentID, provider, apiKey string) (*domain.APIKey, bool, error) {
	if err := s.repo.UpdateAPIKeyValue(ctx, agentID, provider, apiKey); err != nil {
		return nil, false, err
	}
	key, err := s.repo.GetAPIKeyByProvider(ctx, agentID, provider)
	if err != nil {
		return nil, false, err
	}
	if key == nil {
		return nil, false, fmt.Errorf("api key for %s/%s: %w", agentID, provider, shared.ErrNotFound)
	}
	return key, false, nil
}

// DeleteKey deletes a key only when it belongs to the given agent.
func (s *Service) DeleteKey(ctx context.Context, agentID, keyID string) error {
	if keyID == "" {
		return fmt.Errorf("key id is required: %w", shared.ErrInvalidInput)
	}
	return s.repo.DeleteAPIKey(ctx, agentID, keyID)
}
